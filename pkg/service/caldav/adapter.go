package caldav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/safe"
)

const requestTimeout = 30 * time.Second

// Adapter speaks CalDAV with Basic auth for one connection. It covers
// generic servers, Nextcloud/ownCloud and iCloud; flavor differences are
// limited to the server URL default, the protocol is identical.
type Adapter struct {
	httpClient   *http.Client
	serverURL    string
	username     string
	password     string
	calendarPath string
	flavor       ServerFlavor
}

var _ interfaces.Adapter = &Adapter{}

type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client, used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

func New(conn *model.Connection, opts ...Option) (*Adapter, error) {
	serverURL := ServerURLFor(conn.ServerURL, conn.Username)
	if serverURL == "" {
		return nil, goerr.New("caldav connection has no server url",
			goerr.T(types.ErrTagPermanent), goerr.V("connectionID", conn.ID))
	}

	a := &Adapter{
		httpClient:   &http.Client{Timeout: requestTimeout},
		serverURL:    strings.TrimSuffix(serverURL, "/"),
		username:     conn.Username,
		password:     conn.Password,
		calendarPath: conn.CalendarID,
		flavor:       DetectFlavor(conn.ServerURL, conn.Username),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Flavor returns the detected server family.
func (a *Adapter) Flavor() ServerFlavor {
	return a.flavor
}

func (a *Adapter) CreateEvent(ctx context.Context, booking *model.Booking) (*model.CreatedEvent, error) {
	calendarPath, err := a.calendar(ctx)
	if err != nil {
		return nil, err
	}

	uid := uuid.NewString()
	if err := a.putEvent(ctx, calendarPath, uid, booking); err != nil {
		return nil, err
	}

	return &model.CreatedEvent{
		ExternalEventID:    uid,
		ExternalCalendarID: calendarPath,
	}, nil
}

func (a *Adapter) UpdateEvent(ctx context.Context, mapping *model.EventMapping, booking *model.Booking) error {
	calendarPath := mapping.ExternalCalendarID
	if calendarPath == "" {
		var err error
		if calendarPath, err = a.calendar(ctx); err != nil {
			return err
		}
	}
	return a.putEvent(ctx, calendarPath, mapping.ExternalEventID, booking)
}

func (a *Adapter) putEvent(ctx context.Context, calendarPath, uid string, booking *model.Booking) error {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(toCalendar(uid, booking)); err != nil {
		return goerr.Wrap(err, "failed to encode icalendar event", goerr.V("uid", uid))
	}

	resp, err := a.request(ctx, http.MethodPut, eventPath(calendarPath, uid), &buf, map[string]string{
		"Content-Type": "text/calendar; charset=utf-8",
	})
	if err != nil {
		return err
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError(resp, "failed to put event")
	}
	return nil
}

func (a *Adapter) DeleteEvent(ctx context.Context, externalEventID string) error {
	calendarPath, err := a.calendar(ctx)
	if err != nil {
		return err
	}

	resp, err := a.request(ctx, http.MethodDelete, eventPath(calendarPath, externalEventID), nil, nil)
	if err != nil {
		return err
	}
	defer safe.Close(ctx, resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK,
		// An already removed event is the desired end state
		http.StatusNotFound, http.StatusGone:
		return nil
	default:
		return statusError(resp, "failed to delete event")
	}
}

func (a *Adapter) ImportEvents(ctx context.Context, from, to time.Time) ([]*model.RemoteEvent, error) {
	calendarPath, err := a.calendar(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`, from.UTC().Format(caldavTimeFormat), to.UTC().Format(caldavTimeFormat))

	resp, err := a.request(ctx, "REPORT", calendarPath, strings.NewReader(query), map[string]string{
		"Content-Type": "application/xml; charset=utf-8",
		"Depth":        "1",
	})
	if err != nil {
		return nil, err
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "calendar query rejected")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read report response", goerr.T(types.ErrTagTransient))
	}

	payloads, err := parseReportResponse(body)
	if err != nil {
		return nil, err
	}

	var result []*model.RemoteEvent
	for _, payload := range payloads {
		events, err := parseEvents(payload, calendarPath)
		if err != nil {
			return nil, err
		}
		result = append(result, events...)
	}
	return result, nil
}

// RefreshCredentials is a no-op: app passwords do not expire.
func (a *Adapter) RefreshCredentials(ctx context.Context) (*model.Credentials, error) {
	return &model.Credentials{}, nil
}

const caldavTimeFormat = "20060102T150405Z"

// calendar resolves the calendar collection path, discovering it via the
// RFC 4791 principal and calendar-home-set properties when the connection
// does not pin one.
func (a *Adapter) calendar(ctx context.Context) (string, error) {
	if a.calendarPath != "" {
		return a.calendarPath, nil
	}

	principal, err := a.propfind(ctx, "/", "0", `<d:current-user-principal/>`)
	if err != nil {
		return "", goerr.Wrap(err, "principal discovery failed")
	}

	homeSet, err := a.propfind(ctx, principal, "0", `<c:calendar-home-set xmlns:c="urn:ietf:params:xml:ns:caldav"/>`)
	if err != nil {
		return "", goerr.Wrap(err, "calendar home set discovery failed")
	}

	calendarPath, err := a.findCalendarCollection(ctx, homeSet)
	if err != nil {
		return "", err
	}

	a.calendarPath = calendarPath
	return calendarPath, nil
}

// propfind issues a single-property PROPFIND and returns the first href
// found inside the property element.
func (a *Adapter) propfind(ctx context.Context, path, depth, prop string) (string, error) {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:">
  <d:prop>%s</d:prop>
</d:propfind>`, prop)

	resp, err := a.request(ctx, "PROPFIND", path, strings.NewReader(body), map[string]string{
		"Content-Type": "application/xml; charset=utf-8",
		"Depth":        depth,
	})
	if err != nil {
		return "", err
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return "", statusError(resp, "propfind rejected")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read propfind response", goerr.T(types.ErrTagTransient))
	}

	href, err := firstHref(raw)
	if err != nil {
		return "", err
	}
	if href == "" {
		return "", goerr.New("propfind returned no href", goerr.T(types.ErrTagPermanent), goerr.V("path", path))
	}
	return href, nil
}

func (a *Adapter) findCalendarCollection(ctx context.Context, homeSet string) (string, error) {
	body := `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:resourcetype/>
    <d:displayname/>
  </d:prop>
</d:propfind>`

	resp, err := a.request(ctx, "PROPFIND", homeSet, strings.NewReader(body), map[string]string{
		"Content-Type": "application/xml; charset=utf-8",
		"Depth":        "1",
	})
	if err != nil {
		return "", err
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return "", statusError(resp, "calendar listing rejected")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read calendar listing", goerr.T(types.ErrTagTransient))
	}

	path, err := firstCalendarHref(raw)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", goerr.New("no calendar collection found", goerr.T(types.ErrTagPermanent), goerr.V("homeSet", homeSet))
	}
	return path, nil
}

func (a *Adapter) request(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		endpoint = a.serverURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create caldav request", goerr.V("path", path))
	}
	req.SetBasicAuth(a.username, a.password)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "caldav request failed",
			goerr.T(types.ErrTagTransient), goerr.V("method", method), goerr.V("path", path))
	}
	return resp, nil
}

func eventPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

func statusError(resp *http.Response, msg string) error {
	return goerr.New(msg,
		types.TagForStatus(resp.StatusCode),
		goerr.V("status", resp.StatusCode))
}

// Multistatus parsing. Namespace-agnostic local names keep this working
// across servers that alias the DAV: prefix differently.

type multistatusHref struct {
	Responses []struct {
		Href string `xml:"href"`
		Prop struct {
			InnerXML string `xml:",innerxml"`
		} `xml:"propstat>prop"`
	} `xml:"response"`
}

func firstHref(raw []byte) (string, error) {
	var ms multistatusHref
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return "", goerr.Wrap(err, "failed to parse multistatus response")
	}

	for _, r := range ms.Responses {
		// The property value itself carries an href element
		if href := extractHref(r.Prop.InnerXML); href != "" {
			return href, nil
		}
	}
	return "", nil
}

// extractHref returns the first non-empty href element anywhere in the
// prop fragment. Servers nest it inside the requested property.
func extractHref(inner string) string {
	dec := xml.NewDecoder(strings.NewReader("<prop>" + inner + "</prop>"))
	inHref := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch el := tok.(type) {
		case xml.StartElement:
			inHref = el.Name.Local == "href"
		case xml.EndElement:
			inHref = false
		case xml.CharData:
			if inHref {
				if href := strings.TrimSpace(string(el)); href != "" {
					return href
				}
			}
		}
	}
}

func firstCalendarHref(raw []byte) (string, error) {
	var ms multistatusHref
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return "", goerr.Wrap(err, "failed to parse calendar listing")
	}

	for _, r := range ms.Responses {
		if r.Href != "" && hasCalendarResourcetype(r.Prop.InnerXML) {
			return r.Href, nil
		}
	}
	return "", nil
}

// hasCalendarResourcetype reports whether the prop fragment declares a
// resourcetype with a calendar element. Matching the element keeps a
// displayname that merely mentions "calendar" from qualifying.
func hasCalendarResourcetype(inner string) bool {
	type resourcetype struct {
		Calendar *struct{} `xml:"calendar"`
	}
	type propFragment struct {
		Resourcetype resourcetype `xml:"resourcetype"`
	}
	var p propFragment
	if err := xml.Unmarshal([]byte("<prop>"+inner+"</prop>"), &p); err != nil {
		return false
	}
	return p.Resourcetype.Calendar != nil
}

func parseReportResponse(raw []byte) ([]string, error) {
	type calendarData struct {
		Data string `xml:",chardata"`
	}
	type prop struct {
		CalendarData calendarData `xml:"calendar-data"`
	}
	type response struct {
		Prop prop `xml:"propstat>prop"`
	}
	type multistatus struct {
		Responses []response `xml:"response"`
	}

	var ms multistatus
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return nil, goerr.Wrap(err, "failed to parse report response")
	}

	var payloads []string
	for _, r := range ms.Responses {
		if data := strings.TrimSpace(r.Prop.CalendarData.Data); data != "" {
			payloads = append(payloads, data)
		}
	}
	return payloads, nil
}
