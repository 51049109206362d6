package types

import "fmt"

// EventStatus is the calendar sync state surfaced on a booking.
// Transitions: not_synced → sync_pending → synced | sync_failed,
// and sync_failed → sync_pending on retry.
type EventStatus string

const (
	EventStatusNotSynced   EventStatus = "not_synced"
	EventStatusSyncPending EventStatus = "sync_pending"
	EventStatusSynced      EventStatus = "synced"
	EventStatusSyncFailed  EventStatus = "sync_failed"
)

// AllEventStatuses returns all valid booking calendar statuses
func AllEventStatuses() []EventStatus {
	return []EventStatus{
		EventStatusNotSynced,
		EventStatusSyncPending,
		EventStatusSynced,
		EventStatusSyncFailed,
	}
}

// IsValid checks if the event status is valid
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusNotSynced,
		EventStatusSyncPending,
		EventStatusSynced,
		EventStatusSyncFailed:
		return true
	default:
		return false
	}
}

// Normalize returns the status, treating empty as EventStatusNotSynced.
func (s EventStatus) Normalize() EventStatus {
	if s == "" {
		return EventStatusNotSynced
	}
	return s
}

// String returns the string representation of the event status
func (s EventStatus) String() string {
	return string(s)
}

// ParseEventStatus parses a string into an EventStatus
func ParseEventStatus(s string) (EventStatus, error) {
	status := EventStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid event status: %s", s)
	}
	return status, nil
}
