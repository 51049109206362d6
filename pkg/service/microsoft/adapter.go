package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/safe"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Adapter talks to Microsoft Graph v1.0 for one Microsoft 365 connection.
type Adapter struct {
	httpClient   *http.Client
	baseURL      string
	calendarID   string
	oauthConfig  *oauth2.Config
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
}

var _ interfaces.Adapter = &Adapter{}

type Option func(*Adapter)

// WithBaseURL overrides the Graph endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = baseURL
	}
}

// WithHTTPClient replaces the OAuth-authenticated client, used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

func New(ctx context.Context, oauthConfig *oauth2.Config, conn *model.Connection, opts ...Option) *Adapter {
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiry,
	}

	a := &Adapter{
		httpClient:   oauthConfig.Client(ctx, token),
		baseURL:      defaultBaseURL,
		calendarID:   conn.CalendarID,
		oauthConfig:  oauthConfig,
		accessToken:  conn.AccessToken,
		refreshToken: conn.RefreshToken,
		tokenExpiry:  conn.TokenExpiry,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) eventsURL() string {
	if a.calendarID != "" {
		return a.baseURL + "/me/calendars/" + url.PathEscape(a.calendarID) + "/events"
	}
	return a.baseURL + "/me/calendar/events"
}

func (a *Adapter) CreateEvent(ctx context.Context, booking *model.Booking) (*model.CreatedEvent, error) {
	body := graphEvent{
		Subject: booking.Summary(),
		Start:   toGraphDateTime(booking.StartsAt),
		End:     toGraphDateTime(booking.EndsAt),
	}

	var created graphEvent
	if err := a.do(ctx, http.MethodPost, a.eventsURL(), &body, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create graph event", goerr.V("bookingID", booking.ID))
	}

	return &model.CreatedEvent{
		ExternalEventID:    created.ID,
		ExternalCalendarID: a.calendarID,
	}, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, mapping *model.EventMapping, booking *model.Booking) error {
	body := graphEvent{
		Subject: booking.Summary(),
		Start:   toGraphDateTime(booking.StartsAt),
		End:     toGraphDateTime(booking.EndsAt),
	}

	endpoint := a.baseURL + "/me/events/" + url.PathEscape(mapping.ExternalEventID)
	if err := a.do(ctx, http.MethodPatch, endpoint, &body, nil); err != nil {
		return goerr.Wrap(err, "failed to update graph event", goerr.V("bookingID", booking.ID))
	}
	return nil
}

func (a *Adapter) DeleteEvent(ctx context.Context, externalEventID string) error {
	endpoint := a.baseURL + "/me/events/" + url.PathEscape(externalEventID)
	err := a.do(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil {
		// An already removed event is the desired end state
		if types.IsNotFound(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to delete graph event", goerr.V("eventID", externalEventID))
	}
	return nil
}

func (a *Adapter) ImportEvents(ctx context.Context, from, to time.Time) ([]*model.RemoteEvent, error) {
	params := url.Values{}
	params.Set("startDateTime", from.UTC().Format(time.RFC3339))
	params.Set("endDateTime", to.UTC().Format(time.RFC3339))

	endpoint := a.baseURL + "/me/calendarView?" + params.Encode()
	if a.calendarID != "" {
		endpoint = a.baseURL + "/me/calendars/" + url.PathEscape(a.calendarID) + "/calendarView?" + params.Encode()
	}

	var result []*model.RemoteEvent
	for endpoint != "" {
		var page graphEventList
		if err := a.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, goerr.Wrap(err, "failed to list graph events")
		}

		for _, ev := range page.Value {
			start, err := ev.Start.parse()
			if err != nil {
				return nil, err
			}
			end, err := ev.End.parse()
			if err != nil {
				return nil, err
			}
			result = append(result, &model.RemoteEvent{
				ExternalEventID:    ev.ID,
				ExternalCalendarID: a.calendarID,
				Summary:            ev.Subject,
				StartsAt:           start,
				EndsAt:             end,
				AllDay:             ev.IsAllDay,
			})
		}
		endpoint = page.NextLink
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

func (a *Adapter) do(ctx context.Context, method, endpoint string, reqBody, respBody any) error {
	var reader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to create request")
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "graph request failed", goerr.T(types.ErrTagTransient))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode >= 400 {
		var gerr graphError
		msg := ""
		if err := json.NewDecoder(resp.Body).Decode(&gerr); err == nil {
			msg = gerr.Error.Message
		}
		return goerr.New("graph request rejected",
			types.TagForStatus(resp.StatusCode),
			goerr.V("status", resp.StatusCode),
			goerr.V("code", gerr.Error.Code),
			goerr.V("message", msg))
	}

	if respBody != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return goerr.Wrap(err, "failed to decode graph response")
		}
	}
	return nil
}
