package caldav_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/caldav"
)

func newTestAdapter(t *testing.T, server *httptest.Server) *caldav.Adapter {
	t.Helper()

	adapter, err := caldav.New(&model.Connection{
		ID:         "conn-1",
		Provider:   types.ProviderCalDAV,
		ServerURL:  server.URL,
		Username:   "alice",
		Password:   "app-password",
		CalendarID: "/calendars/alice/work/",
	}, caldav.WithHTTPClient(server.Client()))
	gt.NoError(t, err).Required()
	return adapter
}

func TestAdapterCreateEvent(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path

		username, password, ok := r.BasicAuth()
		gt.Bool(t, ok).True()
		gt.Value(t, username).Equal("alice")
		gt.Value(t, password).Equal("app-password")

		raw, err := io.ReadAll(r.Body)
		gt.NoError(t, err).Required()
		gotBody = string(raw)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	created, err := adapter.CreateEvent(context.Background(), &model.Booking{
		ID:       "booking-1",
		Title:    "Haircut",
		Customer: "Dana",
		StartsAt: start,
		EndsAt:   start.Add(30 * time.Minute),
	})
	gt.NoError(t, err).Required()

	gt.Value(t, gotMethod).Equal(http.MethodPut)
	gt.Bool(t, strings.HasPrefix(gotPath, "/calendars/alice/work/")).True()
	gt.Bool(t, strings.HasSuffix(gotPath, ".ics")).True()
	gt.Value(t, created.ExternalEventID).NotEqual("")
	gt.Value(t, created.ExternalCalendarID).Equal("/calendars/alice/work/")

	gt.Bool(t, strings.Contains(gotBody, "BEGIN:VEVENT")).True()
	gt.Bool(t, strings.Contains(gotBody, "UID:"+created.ExternalEventID)).True()
	gt.Bool(t, strings.Contains(gotBody, "DTSTART:20260901T100000Z")).True()
}

func TestAdapterDeleteEvent(t *testing.T) {
	t.Run("missing remote event is success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Method).Equal(http.MethodDelete)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server)
		gt.NoError(t, adapter.DeleteEvent(context.Background(), "evt-gone"))
	})

	t.Run("server failure is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server)
		err := adapter.DeleteEvent(context.Background(), "evt-1")
		gt.Value(t, err).NotNil()
		gt.Bool(t, types.IsTransient(err)).True()
	})

	t.Run("rejected credentials are an auth error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := newTestAdapter(t, server)
		err := adapter.DeleteEvent(context.Background(), "evt-1")
		gt.Value(t, err).NotNil()
		gt.Bool(t, types.IsAuthError(err)).True()
	})
}

func TestAdapterImportEvents(t *testing.T) {
	const report = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/alice/work/evt-1.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"etag-1"</d:getetag>
        <c:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:evt-1
SUMMARY:Dentist
DTSTAMP:20260901T080000Z
DTSTART:20260902T090000Z
DTEND:20260902T100000Z
END:VEVENT
END:VCALENDAR</c:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal("REPORT")
		gt.Value(t, r.Header.Get("Depth")).Equal("1")

		raw, err := io.ReadAll(r.Body)
		gt.NoError(t, err).Required()
		gt.Bool(t, strings.Contains(string(raw), "calendar-query")).True()

		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(report))
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	events, err := adapter.ImportEvents(context.Background(), from, from.AddDate(0, 0, 30))
	gt.NoError(t, err).Required()

	gt.Array(t, events).Length(1)
	gt.Value(t, events[0].ExternalEventID).Equal("evt-1")
	gt.Value(t, events[0].Summary).Equal("Dentist")
	gt.Bool(t, events[0].StartsAt.Equal(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC))).True()
	gt.Bool(t, events[0].AllDay).False()
}

func TestAdapterDiscoversCalendarCollection(t *testing.T) {
	const principal = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/</d:href>
    <d:propstat>
      <d:prop>
        <d:current-user-principal><d:href>/principals/alice/</d:href></d:current-user-principal>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	const homeSet = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/principals/alice/</d:href>
    <d:propstat>
      <d:prop>
        <c:calendar-home-set><d:href>/calendars/alice/</d:href></c:calendar-home-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	// The home set itself mentions "calendar" in its displayname but is not
	// a calendar collection; only the second response carries the
	// resourcetype that qualifies.
	const listing = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/alice/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/></d:resourcetype>
        <d:displayname>My calendar folders</d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/personal/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><c:calendar/></d:resourcetype>
        <d:displayname>Personal</d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	var putPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "PROPFIND" && r.URL.Path == "/":
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, principal)
		case r.Method == "PROPFIND" && r.URL.Path == "/principals/alice/":
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, homeSet)
		case r.Method == "PROPFIND" && r.URL.Path == "/calendars/alice/":
			gt.Value(t, r.Header.Get("Depth")).Equal("1")
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, listing)
		case r.Method == http.MethodPut:
			putPath = r.URL.Path
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	adapter, err := caldav.New(&model.Connection{
		ID:        "conn-1",
		Provider:  types.ProviderCalDAV,
		ServerURL: server.URL,
		Username:  "alice",
		Password:  "app-password",
	}, caldav.WithHTTPClient(server.Client()))
	gt.NoError(t, err).Required()

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	created, err := adapter.CreateEvent(context.Background(), &model.Booking{
		ID:       "booking-1",
		Title:    "Haircut",
		StartsAt: start,
		EndsAt:   start.Add(30 * time.Minute),
	})
	gt.NoError(t, err).Required()

	gt.Value(t, created.ExternalCalendarID).Equal("/calendars/alice/personal/")
	gt.Bool(t, strings.HasPrefix(putPath, "/calendars/alice/personal/")).True()
}

func TestAdapterRefreshCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("refresh must not touch the server")
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server)

	creds, err := adapter.RefreshCredentials(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, creds.AccessToken).Equal("")
}
