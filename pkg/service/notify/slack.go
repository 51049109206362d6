package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
)

// SlackNotifier posts terminal sync failures to a Slack channel.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

var _ interfaces.Notifier = &SlackNotifier{}

// NewSlack creates a Slack notifier with the provided bot token.
func NewSlack(token, channelID string) (*SlackNotifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}

	return &SlackNotifier{
		api:       slack.New(token),
		channelID: channelID,
	}, nil
}

func (n *SlackNotifier) NotifySyncFailure(ctx context.Context, booking *model.Booking, errs []string) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "Calendar sync failed", false, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(
				"*Booking:* %s\n*When:* %s\n*Errors:*\n%s",
				booking.Title,
				booking.StartsAt.Format(time.RFC1123),
				formatErrors(errs),
			), false, false),
			nil, nil),
	}

	text := fmt.Sprintf("Calendar sync failed for booking %s", booking.ID)
	if _, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false)); err != nil {
		return goerr.Wrap(err, "failed to post sync failure message", goerr.V("bookingID", booking.ID))
	}
	return nil
}

func (n *SlackNotifier) NotifyConnectionDeactivated(ctx context.Context, conn *model.Connection, reason string) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "Calendar connection deactivated", false, false)),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(
				"*Provider:* %s\n*Staff:* %s\n*Reason:* %s\n\nThe staff member must reconnect their calendar.",
				conn.Provider,
				conn.StaffID,
				reason,
			), false, false),
			nil, nil),
	}

	text := fmt.Sprintf("Calendar connection %s deactivated", conn.ID)
	if _, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false)); err != nil {
		return goerr.Wrap(err, "failed to post deactivation message", goerr.V("connectionID", conn.ID))
	}
	return nil
}

func formatErrors(errs []string) string {
	if len(errs) == 0 {
		return "unknown"
	}
	var b strings.Builder
	for _, e := range errs {
		b.WriteString("• ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
