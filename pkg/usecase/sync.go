package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// SyncBooking pushes a booking to every active connection of its staff
// member, creating the remote event when no live mapping exists and
// updating it otherwise. Adapter failures become per-connection results;
// the booking's event status reflects the aggregate outcome.
func (uc *UseCases) SyncBooking(ctx context.Context, bookingID types.BookingID) (*model.SyncReport, error) {
	unlock := uc.bookingLocks.Lock(bookingLockKey(bookingID.String()))
	defer unlock()

	// Re-read under the lock so a queued job against stale state
	// degrades to the current truth.
	booking, err := uc.repo.Booking().Get(ctx, bookingID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load booking", goerr.V("bookingID", bookingID))
	}

	conns, err := uc.repo.Connection().ListActiveByStaff(ctx, booking.StaffID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list connections", goerr.V("staffID", booking.StaffID))
	}

	report := &model.SyncReport{BookingID: bookingID}
	for _, conn := range conns {
		report.Results = append(report.Results, uc.syncConnection(ctx, conn, booking))
	}

	status := types.EventStatusSynced
	if !report.Succeeded() {
		status = types.EventStatusSyncFailed
	}
	if err := uc.repo.Booking().UpdateEventStatus(ctx, bookingID, status); err != nil {
		return nil, goerr.Wrap(err, "failed to update booking status", goerr.V("bookingID", bookingID))
	}

	return report, nil
}

// syncConnection performs the remote write for one connection. Failures
// are converted into the result, never returned, so sibling connections
// keep processing.
func (uc *UseCases) syncConnection(ctx context.Context, conn *model.Connection, booking *model.Booking) model.ConnectionResult {
	unlock := uc.connLocks.Lock(connLockKey(conn.ID.String()))
	defer unlock()

	result := model.ConnectionResult{
		ConnectionID: conn.ID,
		Provider:     conn.Provider,
	}

	// A token refresh may have landed while we waited on the lock
	current, err := uc.repo.Connection().Get(ctx, conn.ID)
	if err != nil {
		result.Message = "connection vanished"
		uc.recordFailure(ctx, conn, booking, result.Message)
		return result
	}
	if !current.Active {
		result.Message = "connection deactivated"
		uc.recordFailure(ctx, current, booking, result.Message)
		return result
	}

	adapter, err := uc.adapters.Adapter(ctx, current)
	if err != nil {
		logging.From(ctx).Error("failed to resolve adapter",
			"connection", current, "error", err)
		result.Message = err.Error()
		uc.recordFailure(ctx, current, booking, result.Message)
		return result
	}

	existing, err := uc.repo.Mapping().GetByBooking(ctx, current.ID, booking.ID)
	if err != nil && !isNotFoundRecord(err) {
		result.Message = err.Error()
		uc.recordFailure(ctx, current, booking, result.Message)
		return result
	}

	var syncErr error
	mapping := &model.EventMapping{
		BusinessID:   booking.BusinessID,
		ConnectionID: current.ID,
		BookingID:    booking.ID,
		Status:       types.SyncStatusSynced,
	}
	if existing != nil {
		mapping.Attempts = existing.Attempts
		mapping.ExternalEventID = existing.ExternalEventID
		mapping.ExternalCalendarID = existing.ExternalCalendarID
	}
	mapping.Attempts++

	if existing != nil && existing.Live() {
		syncErr = adapter.UpdateEvent(ctx, existing, booking)
		if syncErr != nil && types.IsNotFound(syncErr) {
			// Remote event vanished underneath the mapping; recreate it
			syncErr = uc.createRemote(ctx, adapter, booking, mapping)
		}
	} else {
		syncErr = uc.createRemote(ctx, adapter, booking, mapping)
	}

	now := uc.now().UTC()
	if syncErr != nil {
		logging.From(ctx).Warn("booking sync failed",
			"bookingID", booking.ID, "connection", current, "error", syncErr)
		mapping.Status = types.SyncStatusFailed
		mapping.LastError = syncErr.Error()
		result.Message = syncErr.Error()
	} else {
		result.OK = true
	}

	if _, err := uc.repo.Mapping().Upsert(ctx, mapping); err != nil {
		logging.From(ctx).Error("failed to persist mapping",
			"bookingID", booking.ID, "connectionID", current.ID, "error", err)
		if result.OK {
			result.OK = false
			result.Message = err.Error()
		}
	}

	syncErrMsg := ""
	if !result.OK {
		syncErrMsg = result.Message
	}
	if err := uc.repo.Connection().UpdateSyncState(ctx, current.ID, now, syncErrMsg); err != nil {
		logging.From(ctx).Error("failed to record sync state",
			"connectionID", current.ID, "error", err)
	}

	return result
}

func (uc *UseCases) createRemote(ctx context.Context, adapter interfaces.Adapter, booking *model.Booking, mapping *model.EventMapping) error {
	created, err := adapter.CreateEvent(ctx, booking)
	if err != nil {
		return err
	}
	mapping.ExternalEventID = created.ExternalEventID
	mapping.ExternalCalendarID = created.ExternalCalendarID
	return nil
}

// recordFailure persists the attempt when no adapter call was possible.
func (uc *UseCases) recordFailure(ctx context.Context, conn *model.Connection, booking *model.Booking, msg string) {
	mapping := &model.EventMapping{
		BusinessID:   booking.BusinessID,
		ConnectionID: conn.ID,
		BookingID:    booking.ID,
		Status:       types.SyncStatusFailed,
		LastError:    msg,
		Attempts:     1,
	}
	if existing, err := uc.repo.Mapping().GetByBooking(ctx, conn.ID, booking.ID); err == nil {
		mapping.Attempts = existing.Attempts + 1
		mapping.ExternalEventID = existing.ExternalEventID
		mapping.ExternalCalendarID = existing.ExternalCalendarID
	}
	if _, err := uc.repo.Mapping().Upsert(ctx, mapping); err != nil {
		logging.From(ctx).Error("failed to persist mapping",
			"bookingID", booking.ID, "connectionID", conn.ID, "error", err)
	}
}

func isNotFoundRecord(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
