package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// RefreshExpiring renews tokens of active connections expiring within the
// refresh window. Connections whose refresh fails and which have had no
// successful sync within the grace period are deactivated so broken
// connections do not accumulate background work forever. Returns the
// number of connections refreshed.
func (uc *UseCases) RefreshExpiring(ctx context.Context) (int, error) {
	deadline := uc.now().UTC().Add(uc.refreshWindow)
	conns, err := uc.repo.Connection().ListExpiring(ctx, deadline)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list expiring connections")
	}

	refreshed := 0
	for _, conn := range conns {
		if err := uc.RefreshConnection(ctx, conn.ID); err != nil {
			logging.From(ctx).Warn("token refresh failed", "connection", conn, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// RefreshConnection renews one connection's tokens under the connection
// lock, so an in-flight sync never races the token write. Idempotent: a
// connection already refreshed while waiting on the lock is a no-op.
func (uc *UseCases) RefreshConnection(ctx context.Context, connID types.ConnectionID) error {
	unlock := uc.connLocks.Lock(connLockKey(connID.String()))
	defer unlock()

	conn, err := uc.repo.Connection().Get(ctx, connID)
	if err != nil {
		return goerr.Wrap(err, "failed to load connection", goerr.V("connectionID", connID))
	}

	now := uc.now().UTC()
	if !conn.Active || !conn.TokenExpiresWithin(now, uc.refreshWindow) {
		return nil
	}

	adapter, err := uc.adapters.Adapter(ctx, conn)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve adapter", goerr.V("connectionID", connID))
	}

	creds, err := adapter.RefreshCredentials(ctx)
	if err != nil {
		uc.handleRefreshFailure(ctx, conn, err)
		return goerr.Wrap(err, "refresh rejected", goerr.V("connectionID", connID))
	}

	if err := uc.repo.Connection().UpdateTokens(ctx, connID, creds.AccessToken, creds.RefreshToken, creds.Expiry); err != nil {
		return goerr.Wrap(err, "failed to persist tokens", goerr.V("connectionID", connID))
	}

	logging.From(ctx).Info("token refreshed", "connection", conn)
	return nil
}

// handleRefreshFailure deactivates the connection when it has gone a full
// grace period without a successful sync.
func (uc *UseCases) handleRefreshFailure(ctx context.Context, conn *model.Connection, refreshErr error) {
	cutoff := uc.now().UTC().Add(-uc.deactivationGrace)
	if conn.SyncedSince(cutoff) {
		return
	}

	reason := "token refresh failed: " + refreshErr.Error()
	if err := uc.repo.Connection().Deactivate(ctx, conn.ID, reason); err != nil {
		logging.From(ctx).Error("failed to deactivate connection", "connection", conn, "error", err)
		return
	}
	logging.From(ctx).Warn("connection deactivated", "connection", conn, "reason", reason)

	if uc.notifier != nil {
		if err := uc.notifier.NotifyConnectionDeactivated(ctx, conn, reason); err != nil {
			logging.From(ctx).Warn("deactivation notification failed", "connection", conn, "error", err)
		}
	}
}
