package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// DeleteBooking removes the remote events of a cancelled booking and
// soft-deletes their mappings. The booking row may already be destroyed;
// businessID is passed separately so the orphan sweep fallback can run
// without it.
func (uc *UseCases) DeleteBooking(ctx context.Context, bookingID types.BookingID, businessID types.BusinessID) (*model.SyncReport, error) {
	unlock := uc.bookingLocks.Lock(bookingLockKey(bookingID.String()))
	defer unlock()

	mappings, err := uc.repo.Mapping().ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list mappings", goerr.V("bookingID", bookingID))
	}

	if len(mappings) == 0 {
		// Nothing tracked under this booking id. The row may have been
		// destroyed before its mappings were written consistently, so
		// fall back to sweeping the whole business.
		if _, err := uc.repo.Booking().Get(ctx, bookingID); isNotFoundRecord(err) {
			return &model.SyncReport{BookingID: bookingID}, uc.SweepOrphans(ctx, businessID)
		}
		return &model.SyncReport{BookingID: bookingID}, nil
	}

	report := &model.SyncReport{BookingID: bookingID}
	for _, mapping := range mappings {
		report.Results = append(report.Results, uc.deleteMapping(ctx, mapping))
	}
	return report, nil
}

// SweepOrphans deletes remote events whose mapping references a booking
// row that no longer exists. Import-origin mappings are excluded: their
// remote events belong to the staff member, not to us.
func (uc *UseCases) SweepOrphans(ctx context.Context, businessID types.BusinessID) error {
	liveIDs, err := uc.repo.Booking().ListIDsByBusiness(ctx, businessID)
	if err != nil {
		return goerr.Wrap(err, "failed to list bookings", goerr.V("businessID", businessID))
	}

	orphans, err := uc.repo.Mapping().ListOrphans(ctx, businessID, liveIDs)
	if err != nil {
		return goerr.Wrap(err, "failed to list orphaned mappings", goerr.V("businessID", businessID))
	}

	for _, mapping := range orphans {
		if mapping.ImportOrigin() {
			continue
		}
		result := uc.deleteMapping(ctx, mapping)
		if !result.OK {
			logging.From(ctx).Warn("orphan cleanup failed",
				"mappingID", mapping.ID, "connectionID", mapping.ConnectionID,
				"message", result.Message)
		}
	}
	return nil
}

// deleteMapping removes one remote event and soft-deletes the mapping.
// A remote event that is already gone counts as success.
func (uc *UseCases) deleteMapping(ctx context.Context, mapping *model.EventMapping) model.ConnectionResult {
	unlock := uc.connLocks.Lock(connLockKey(mapping.ConnectionID.String()))
	defer unlock()

	result := model.ConnectionResult{ConnectionID: mapping.ConnectionID}

	conn, err := uc.repo.Connection().Get(ctx, mapping.ConnectionID)
	if err != nil {
		// No connection means no way to reach the remote event; drop the
		// mapping so the sweep does not spin on it forever.
		if markErr := uc.repo.Mapping().MarkDeleted(ctx, mapping.ID); markErr != nil {
			result.Message = markErr.Error()
			return result
		}
		result.OK = true
		return result
	}
	result.Provider = conn.Provider

	if mapping.ExternalEventID != "" {
		adapter, err := uc.adapters.Adapter(ctx, conn)
		if err != nil {
			result.Message = err.Error()
			return result
		}

		if err := adapter.DeleteEvent(ctx, mapping.ExternalEventID); err != nil {
			result.Message = err.Error()
			return result
		}
	}

	if err := uc.repo.Mapping().MarkDeleted(ctx, mapping.ID); err != nil {
		result.Message = err.Error()
		return result
	}

	result.OK = true
	return result
}
