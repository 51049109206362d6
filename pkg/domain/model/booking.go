package model

import (
	"time"

	"github.com/slotwise/calsync/pkg/domain/types"
)

// Booking is the scheduling record whose lifecycle drives calendar sync.
// The sync subsystem only reads its identity and time window and writes
// back EventStatus. Business-rule validation lives with the booking domain.
type Booking struct {
	ID         types.BookingID
	BusinessID types.BusinessID
	StaffID    types.StaffID

	Title    string
	Customer string
	StartsAt time.Time
	EndsAt   time.Time

	EventStatus types.EventStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary returns the title pushed to external calendars.
func (b *Booking) Summary() string {
	if b.Customer == "" {
		return b.Title
	}
	return b.Title + " - " + b.Customer
}
