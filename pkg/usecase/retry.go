package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// RetryFailedSyncs re-drives sync for up to limit failed bookings of a
// business. Used for manual recovery and the scheduled retry batch.
func (uc *UseCases) RetryFailedSyncs(ctx context.Context, businessID types.BusinessID, limit int) (*model.RetryOutcome, error) {
	bookings, err := uc.repo.Booking().ListByStatus(ctx, businessID, types.EventStatusSyncFailed, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list failed bookings", goerr.V("businessID", businessID))
	}
	return uc.syncEach(ctx, bookingIDs(bookings)), nil
}

// SyncPendingBookings drives sync for bookings that have not completed a
// sync yet, oldest first.
func (uc *UseCases) SyncPendingBookings(ctx context.Context, businessID types.BusinessID, limit int) (*model.RetryOutcome, error) {
	var ids []types.BookingID
	for _, status := range []types.EventStatus{types.EventStatusSyncPending, types.EventStatusNotSynced} {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(ids)
			if remaining <= 0 {
				break
			}
		}
		bookings, err := uc.repo.Booking().ListByStatus(ctx, businessID, status, remaining)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list pending bookings", goerr.V("businessID", businessID))
		}
		ids = append(ids, bookingIDs(bookings)...)
	}
	return uc.syncEach(ctx, ids), nil
}

// FullResync re-drives sync for every booking of a business regardless of
// its current state.
func (uc *UseCases) FullResync(ctx context.Context, businessID types.BusinessID) (*model.RetryOutcome, error) {
	ids, err := uc.repo.Booking().ListIDsByBusiness(ctx, businessID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list bookings", goerr.V("businessID", businessID))
	}
	return uc.syncEach(ctx, ids), nil
}

func (uc *UseCases) syncEach(ctx context.Context, ids []types.BookingID) *model.RetryOutcome {
	outcome := &model.RetryOutcome{}
	for _, id := range ids {
		outcome.TotalAttempted++

		if err := uc.repo.Booking().UpdateEventStatus(ctx, id, types.EventStatusSyncPending); err != nil {
			logging.From(ctx).Warn("failed to mark booking pending", "bookingID", id, "error", err)
		}

		report, err := uc.SyncBooking(ctx, id)
		if err != nil {
			logging.From(ctx).Warn("booking sync errored", "bookingID", id, "error", err)
			outcome.Failed++
			continue
		}
		if report.Succeeded() {
			outcome.Successful++
		} else {
			outcome.Failed++
		}
	}
	return outcome
}

func bookingIDs(bookings []*model.Booking) []types.BookingID {
	ids := make([]types.BookingID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
