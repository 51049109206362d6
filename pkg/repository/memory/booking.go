package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type bookingRepository struct {
	mu       sync.RWMutex
	bookings map[types.BookingID]*model.Booking
}

func newBookingRepository() *bookingRepository {
	return &bookingRepository{
		bookings: make(map[types.BookingID]*model.Booking),
	}
}

func copyBooking(b *model.Booking) *model.Booking {
	copied := *b
	return &copied
}

func (r *bookingRepository) Put(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyBooking(booking)
	if created.ID == "" {
		created.ID = types.NewBookingID()
		created.CreatedAt = time.Now().UTC()
	}
	created.EventStatus = created.EventStatus.Normalize()
	created.UpdatedAt = time.Now().UTC()

	r.bookings[created.ID] = created
	return copyBooking(created), nil
}

func (r *bookingRepository) Get(ctx context.Context, id types.BookingID) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.bookings[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
	}
	return copyBooking(b), nil
}

func (r *bookingRepository) ListByStatus(ctx context.Context, businessID types.BusinessID, status types.EventStatus, limit int) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Booking
	for _, b := range r.bookings {
		if b.BusinessID == businessID && b.EventStatus == status {
			result = append(result, copyBooking(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *bookingRepository) ListIDsByBusiness(ctx context.Context, businessID types.BusinessID) ([]types.BookingID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []types.BookingID
	for _, b := range r.bookings {
		if b.BusinessID == businessID {
			ids = append(ids, b.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *bookingRepository) UpdateEventStatus(ctx context.Context, id types.BookingID, status types.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.bookings[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
	}

	b.EventStatus = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id types.BookingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[id]; !exists {
		return goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
	}
	delete(r.bookings, id)
	return nil
}
