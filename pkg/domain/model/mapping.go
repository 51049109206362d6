package model

import (
	"strings"
	"time"

	"github.com/slotwise/calsync/pkg/domain/types"
)

// EventMapping correlates one local booking with one remote calendar event
// for one connection. The booking reference is weak: the booking row may be
// destroyed while the mapping survives until the orphan sweep removes the
// remote event.
type EventMapping struct {
	ID           types.MappingID
	BusinessID   types.BusinessID
	ConnectionID types.ConnectionID
	BookingID    types.BookingID

	ExternalEventID    string
	ExternalCalendarID string

	Status    types.SyncStatus
	LastError string
	Attempts  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the mapping still tracks a remote event.
func (m *EventMapping) Live() bool {
	return m.Status.Live()
}

// remoteOriginPrefix marks mappings created by availability import. Such
// mappings track an externally-owned event and have no booking row.
const remoteOriginPrefix = "remote:"

// RemoteBookingID derives the synthetic booking reference for an imported
// remote event, keeping the (connection, booking) uniqueness key intact.
func RemoteBookingID(externalEventID string) types.BookingID {
	return types.BookingID(remoteOriginPrefix + externalEventID)
}

// ImportOrigin reports whether the mapping was created by availability
// import. The remote event behind such a mapping belongs to the staff
// member, so the orphan sweep must never delete it.
func (m *EventMapping) ImportOrigin() bool {
	return strings.HasPrefix(m.BookingID.String(), remoteOriginPrefix)
}
