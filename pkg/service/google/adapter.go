package google

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultCalendarID = "primary"

// Adapter talks to Google Calendar via the calendar/v3 API for one
// connection. Events are written with SendUpdates("none") so attendees
// never receive notification mail from the sync.
type Adapter struct {
	service      *calendar.Service
	calendarID   string
	oauthConfig  *oauth2.Config
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
}

var _ interfaces.Adapter = &Adapter{}

func New(ctx context.Context, oauthConfig *oauth2.Config, conn *model.Connection) (*Adapter, error) {
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiry,
	}

	service, err := calendar.NewService(ctx,
		option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create calendar service",
			goerr.V("connectionID", conn.ID))
	}

	calendarID := conn.CalendarID
	if calendarID == "" {
		calendarID = defaultCalendarID
	}

	return &Adapter{
		service:      service,
		calendarID:   calendarID,
		oauthConfig:  oauthConfig,
		accessToken:  conn.AccessToken,
		refreshToken: conn.RefreshToken,
		tokenExpiry:  conn.TokenExpiry,
	}, nil
}

func (a *Adapter) CreateEvent(ctx context.Context, booking *model.Booking) (*model.CreatedEvent, error) {
	created, err := a.service.Events.Insert(a.calendarID, toEvent(booking)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(err, "failed to insert event", booking.ID.String())
	}

	return &model.CreatedEvent{
		ExternalEventID:    created.Id,
		ExternalCalendarID: a.calendarID,
	}, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, mapping *model.EventMapping, booking *model.Booking) error {
	calendarID := mapping.ExternalCalendarID
	if calendarID == "" {
		calendarID = a.calendarID
	}

	_, err := a.service.Events.Update(calendarID, mapping.ExternalEventID, toEvent(booking)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError(err, "failed to update event", booking.ID.String())
	}
	return nil
}

func (a *Adapter) DeleteEvent(ctx context.Context, externalEventID string) error {
	err := a.service.Events.Delete(a.calendarID, externalEventID).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		// An already removed event is the desired end state
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
			return nil
		}
		return wrapAPIError(err, "failed to delete event", externalEventID)
	}
	return nil
}

func (a *Adapter) ImportEvents(ctx context.Context, from, to time.Time) ([]*model.RemoteEvent, error) {
	var result []*model.RemoteEvent
	pageToken := ""

	for {
		call := a.service.Events.List(a.calendarID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		if err != nil {
			return nil, wrapAPIError(err, "failed to list events", a.calendarID)
		}

		for _, ev := range events.Items {
			if ev.Status == "cancelled" {
				continue
			}
			remote, err := toRemoteEvent(ev, a.calendarID)
			if err != nil {
				return nil, err
			}
			result = append(result, remote)
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return result, nil
}

func (a *Adapter) RefreshCredentials(ctx context.Context) (*model.Credentials, error) {
	// Force the refresh grant by presenting an expired access token
	stale := &oauth2.Token{
		AccessToken:  a.accessToken,
		RefreshToken: a.refreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}

	token, err := a.oauthConfig.TokenSource(ctx, stale).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, goerr.Wrap(err, "token refresh rejected",
				types.TagForStatus(retrieveErr.Response.StatusCode))
		}
		return nil, goerr.Wrap(err, "token refresh failed", goerr.T(types.ErrTagTransient))
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = a.refreshToken
	}

	return &model.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       token.Expiry,
	}, nil
}

func toEvent(booking *model.Booking) *calendar.Event {
	return &calendar.Event{
		Summary: booking.Summary(),
		Start: &calendar.EventDateTime{
			DateTime: booking.StartsAt.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: booking.EndsAt.Format(time.RFC3339),
		},
	}
}

func toRemoteEvent(ev *calendar.Event, calendarID string) (*model.RemoteEvent, error) {
	remote := &model.RemoteEvent{
		ExternalEventID:    ev.Id,
		ExternalCalendarID: calendarID,
		Summary:            ev.Summary,
	}

	start, allDay, err := parseEventTime(ev.Start)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse event start", goerr.V("eventID", ev.Id))
	}
	end, _, err := parseEventTime(ev.End)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse event end", goerr.V("eventID", ev.Id))
	}

	remote.StartsAt = start
	remote.EndsAt = end
	remote.AllDay = allDay
	return remote, nil
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, nil
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		return t, true, err
	}
	t, err := time.Parse(time.RFC3339, edt.DateTime)
	return t, false, err
}

func wrapAPIError(err error, msg, subject string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return goerr.Wrap(err, msg,
			types.TagForStatus(apiErr.Code),
			goerr.V("subject", subject),
			goerr.V("status", apiErr.Code))
	}
	// No HTTP status means the request never completed
	return goerr.Wrap(err, msg, goerr.T(types.ErrTagTransient), goerr.V("subject", subject))
}
