package caldav

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
)

const productID = "-//slotwise//calsync//EN"

// toCalendar renders a booking as a single-VEVENT iCalendar object.
func toCalendar(uid string, booking *model.Booking) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, booking.Summary())
	event.Props.SetDateTime(ical.PropDateTimeStart, booking.StartsAt.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, booking.EndsAt.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, event)
	return cal
}

// parseEvents extracts provider-neutral events from raw iCalendar data.
// Components other than VEVENT are ignored.
func parseEvents(icalData, calendarID string) ([]*model.RemoteEvent, error) {
	cal, err := ical.NewDecoder(strings.NewReader(icalData)).Decode()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode icalendar data")
	}

	var events []*model.RemoteEvent
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		remote := &model.RemoteEvent{ExternalCalendarID: calendarID}
		if uid := comp.Props.Get(ical.PropUID); uid != nil {
			remote.ExternalEventID = uid.Value
		}
		if summary := comp.Props.Get(ical.PropSummary); summary != nil {
			remote.Summary = summary.Value
		}

		if dtstart := comp.Props.Get(ical.PropDateTimeStart); dtstart != nil {
			start, err := dtstart.DateTime(time.UTC)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to parse DTSTART", goerr.V("uid", remote.ExternalEventID))
			}
			remote.StartsAt = start
			// A VALUE=DATE start marks an all-day event
			remote.AllDay = dtstart.ValueType() == ical.ValueDate
		}
		if dtend := comp.Props.Get(ical.PropDateTimeEnd); dtend != nil {
			end, err := dtend.DateTime(time.UTC)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to parse DTEND", goerr.V("uid", remote.ExternalEventID))
			}
			remote.EndsAt = end
		}

		events = append(events, remote)
	}
	return events, nil
}
