package interfaces

import (
	"context"

	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type MappingRepository interface {
	// Upsert writes the mapping keyed by (connection, booking). A re-sync
	// updates the existing row instead of creating a duplicate.
	Upsert(ctx context.Context, mapping *model.EventMapping) (*model.EventMapping, error)

	// GetByBooking returns the mapping for (connection, booking), live or not
	GetByBooking(ctx context.Context, connID types.ConnectionID, bookingID types.BookingID) (*model.EventMapping, error)

	// GetByExternalID returns the mapping for (connection, external event id)
	GetByExternalID(ctx context.Context, connID types.ConnectionID, externalEventID string) (*model.EventMapping, error)

	// ListByBooking returns all live mappings referencing a booking
	ListByBooking(ctx context.Context, bookingID types.BookingID) ([]*model.EventMapping, error)

	// ListByConnection returns all live mappings of a connection
	ListByConnection(ctx context.Context, connID types.ConnectionID) ([]*model.EventMapping, error)

	// ListOrphans returns live mappings of a business whose booking id is
	// not in liveBookingIDs. Used by the orphan sweep after bookings are
	// destroyed without a delete sync.
	ListOrphans(ctx context.Context, businessID types.BusinessID, liveBookingIDs []types.BookingID) ([]*model.EventMapping, error)

	// MarkDeleted soft-deletes the mapping
	MarkDeleted(ctx context.Context, id types.MappingID) error

	// Statistics aggregates mapping outcomes for a business
	Statistics(ctx context.Context, businessID types.BusinessID) (*model.SyncStatistics, error)
}
