package model

import "time"

// RemoteEvent is a provider-neutral view of an external calendar event,
// returned by adapter imports and used to block staff availability.
type RemoteEvent struct {
	ExternalEventID    string
	ExternalCalendarID string
	Summary            string
	StartsAt           time.Time
	EndsAt             time.Time
	AllDay             bool
}

// CreatedEvent is the result of pushing a booking to a provider.
type CreatedEvent struct {
	ExternalEventID    string
	ExternalCalendarID string
}
