package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// DefaultImportWindow is the range scanned when the caller passes no
// explicit bounds.
const DefaultImportWindow = 30 * 24 * time.Hour

// ImportAvailability pulls remote events of every active connection of a
// staff member into import-origin mappings, blocking the staff member's
// availability against externally-scheduled conflicts. Running it twice
// against an unchanged remote produces no mapping churn.
func (uc *UseCases) ImportAvailability(ctx context.Context, staffID types.StaffID, from, to time.Time) (*model.ImportOutcome, error) {
	if from.IsZero() {
		from = uc.now().UTC()
	}
	if to.IsZero() {
		to = from.Add(DefaultImportWindow)
	}

	conns, err := uc.repo.Connection().ListActiveByStaff(ctx, staffID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list connections", goerr.V("staffID", staffID))
	}

	outcome := &model.ImportOutcome{StaffID: staffID}
	for _, conn := range conns {
		created, pruned, err := uc.importConnection(ctx, conn, from, to)
		if err != nil {
			// The next scheduled import is the recovery path
			logging.From(ctx).Warn("availability import failed",
				"staffID", staffID, "connection", conn, "error", err)
			continue
		}
		outcome.Created += created
		outcome.Pruned += pruned
	}
	return outcome, nil
}

func (uc *UseCases) importConnection(ctx context.Context, conn *model.Connection, from, to time.Time) (int, int, error) {
	unlock := uc.connLocks.Lock(connLockKey(conn.ID.String()))
	defer unlock()

	adapter, err := uc.adapters.Adapter(ctx, conn)
	if err != nil {
		return 0, 0, err
	}

	remote, err := adapter.ImportEvents(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}

	existing, err := uc.repo.Mapping().ListByConnection(ctx, conn.ID)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "failed to list mappings", goerr.V("connectionID", conn.ID))
	}

	tracked := make(map[string]*model.EventMapping, len(existing))
	for _, m := range existing {
		tracked[m.ExternalEventID] = m
	}

	seen := make(map[string]bool, len(remote))
	created := 0
	for _, ev := range remote {
		seen[ev.ExternalEventID] = true
		if _, ok := tracked[ev.ExternalEventID]; ok {
			continue
		}

		mapping := &model.EventMapping{
			BusinessID:         conn.BusinessID,
			ConnectionID:       conn.ID,
			BookingID:          model.RemoteBookingID(ev.ExternalEventID),
			ExternalEventID:    ev.ExternalEventID,
			ExternalCalendarID: ev.ExternalCalendarID,
			Status:             types.SyncStatusSynced,
		}
		if _, err := uc.repo.Mapping().Upsert(ctx, mapping); err != nil {
			return created, 0, goerr.Wrap(err, "failed to create import mapping",
				goerr.V("externalEventID", ev.ExternalEventID))
		}
		created++
	}

	// Prune import mappings whose remote event disappeared. Mappings that
	// track a pushed booking are reconciled by sync, not by import.
	pruned := 0
	for _, m := range existing {
		if !m.ImportOrigin() || seen[m.ExternalEventID] {
			continue
		}
		if err := uc.repo.Mapping().MarkDeleted(ctx, m.ID); err != nil {
			return created, pruned, goerr.Wrap(err, "failed to prune import mapping",
				goerr.V("mappingID", m.ID))
		}
		pruned++
	}

	return created, pruned, nil
}
