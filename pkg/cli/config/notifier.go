package config

import (
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/service/notify"
	"github.com/slotwise/calsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Notifier holds CLI flags for Slack notification delivery
type Notifier struct {
	slackToken   string
	slackChannel string
}

// Flags returns CLI flags for notification configuration
func (n *Notifier) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for failure notifications",
			Category:    "Notification",
			Sources:     cli.EnvVars("CALSYNC_SLACK_OAUTH_TOKEN"),
			Destination: &n.slackToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel for failure notifications",
			Category:    "Notification",
			Sources:     cli.EnvVars("CALSYNC_SLACK_CHANNEL_ID"),
			Destination: &n.slackChannel,
		},
	}
}

// Configure builds the notifier, or returns nil when Slack is not
// configured. Notification is optional; syncing works without it.
func (n *Notifier) Configure() (interfaces.Notifier, error) {
	if n.slackToken == "" || n.slackChannel == "" {
		logging.Default().Info("Slack notification not configured")
		return nil, nil
	}

	notifier, err := notify.NewSlack(n.slackToken, n.slackChannel)
	if err != nil {
		return nil, err
	}
	logging.Default().Info("Slack notification enabled", "channel", n.slackChannel)
	return notifier, nil
}
