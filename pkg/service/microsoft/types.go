package microsoft

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// graphDateTime is the Graph API representation of an event boundary.
type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

const graphTimeFormat = "2006-01-02T15:04:05.9999999"

func toGraphDateTime(t time.Time) graphDateTime {
	return graphDateTime{
		DateTime: t.UTC().Format(graphTimeFormat),
		TimeZone: "UTC",
	}
}

func (d graphDateTime) parse() (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && d.TimeZone != "UTC" {
		l, err := time.LoadLocation(d.TimeZone)
		if err != nil {
			return time.Time{}, goerr.Wrap(err, "unknown graph time zone", goerr.V("timeZone", d.TimeZone))
		}
		loc = l
	}

	t, err := time.ParseInLocation(graphTimeFormat, d.DateTime, loc)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to parse graph datetime", goerr.V("value", d.DateTime))
	}
	return t.UTC(), nil
}

type graphEvent struct {
	ID       string        `json:"id,omitempty"`
	Subject  string        `json:"subject"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	IsAllDay bool          `json:"isAllDay,omitempty"`
}

type graphEventList struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
