package interfaces

import (
	"context"
	"time"

	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type ConnectionRepository interface {
	// Put creates or replaces a connection. Activating a connection
	// deactivates any other active connection of the same (staff, provider)
	// pair so the one-active-per-pair invariant holds.
	Put(ctx context.Context, conn *model.Connection) (*model.Connection, error)

	// Get retrieves a connection by ID
	Get(ctx context.Context, id types.ConnectionID) (*model.Connection, error)

	// ListActiveByStaff returns all active connections of a staff member
	ListActiveByStaff(ctx context.Context, staffID types.StaffID) ([]*model.Connection, error)

	// ListActiveByBusiness returns all active connections of a business
	ListActiveByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Connection, error)

	// ListExpiring returns active refreshable connections whose token
	// expires before the deadline
	ListExpiring(ctx context.Context, deadline time.Time) ([]*model.Connection, error)

	// UpdateTokens persists refreshed credentials
	UpdateTokens(ctx context.Context, id types.ConnectionID, accessToken, refreshToken string, expiry time.Time) error

	// UpdateSyncState records the outcome of a sync attempt
	UpdateSyncState(ctx context.Context, id types.ConnectionID, syncedAt time.Time, syncErr string) error

	// Deactivate flags the connection inactive, retaining history
	Deactivate(ctx context.Context, id types.ConnectionID, reason string) error
}
