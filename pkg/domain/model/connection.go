package model

import (
	"log/slog"
	"time"

	"github.com/slotwise/calsync/pkg/domain/types"
)

// Connection is a staff member's stored link to one external calendar
// provider. At most one active connection exists per (staff, provider).
type Connection struct {
	ID         types.ConnectionID
	BusinessID types.BusinessID
	StaffID    types.StaffID
	Provider   types.ProviderType

	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time

	// CalDAV-family parameters. Empty for OAuth providers.
	ServerURL  string
	Username   string
	Password   string
	CalendarID string

	Active        bool
	LastSyncedAt  time.Time
	LastSyncError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenExpiresWithin reports whether the access token expires inside the
// given window. Connections without an expiry never report true.
func (c *Connection) TokenExpiresWithin(now time.Time, window time.Duration) bool {
	if !c.Provider.Refreshable() || c.TokenExpiry.IsZero() {
		return false
	}
	return c.TokenExpiry.Before(now.Add(window))
}

// SyncedSince reports whether the connection completed a successful sync
// after the given time.
func (c *Connection) SyncedSince(t time.Time) bool {
	return !c.LastSyncedAt.IsZero() && c.LastSyncedAt.After(t)
}

// LogValue keeps credentials out of log output.
func (c *Connection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID.String()),
		slog.String("staff_id", c.StaffID.String()),
		slog.String("provider", c.Provider.String()),
		slog.Bool("active", c.Active),
		slog.Time("token_expiry", c.TokenExpiry),
	)
}
