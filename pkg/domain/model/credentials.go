package model

import (
	"log/slog"
	"time"
)

// Credentials is the result of a provider token refresh.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// LogValue keeps token material out of log output.
func (c *Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("access_token.len", len(c.AccessToken)),
		slog.Int("refresh_token.len", len(c.RefreshToken)),
		slog.Time("expiry", c.Expiry),
	)
}
