package interfaces

import (
	"context"

	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type BookingRepository interface {
	// Put creates or replaces a booking
	Put(ctx context.Context, booking *model.Booking) (*model.Booking, error)

	// Get retrieves a booking by ID
	Get(ctx context.Context, id types.BookingID) (*model.Booking, error)

	// ListByStatus returns up to limit bookings of a business in the given
	// calendar sync state. limit <= 0 means no limit.
	ListByStatus(ctx context.Context, businessID types.BusinessID, status types.EventStatus, limit int) ([]*model.Booking, error)

	// ListIDsByBusiness returns the ids of all bookings of a business
	ListIDsByBusiness(ctx context.Context, businessID types.BusinessID) ([]types.BookingID, error)

	// UpdateEventStatus transitions the booking's calendar sync state
	UpdateEventStatus(ctx context.Context, id types.BookingID, status types.EventStatus) error

	// Delete removes the booking row. Mappings are untouched; the orphan
	// sweep resolves them.
	Delete(ctx context.Context, id types.BookingID) error
}
