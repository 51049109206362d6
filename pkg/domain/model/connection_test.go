package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

func TestTokenExpiresWithin(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expiring token inside window", func(t *testing.T) {
		c := &model.Connection{
			Provider:    types.ProviderGoogle,
			TokenExpiry: now.Add(10 * time.Minute),
		}
		gt.True(t, c.TokenExpiresWithin(now, 15*time.Minute))
	})

	t.Run("token outside window", func(t *testing.T) {
		c := &model.Connection{
			Provider:    types.ProviderGoogle,
			TokenExpiry: now.Add(time.Hour),
		}
		gt.False(t, c.TokenExpiresWithin(now, 15*time.Minute))
	})

	t.Run("caldav credentials never expire", func(t *testing.T) {
		c := &model.Connection{
			Provider:    types.ProviderICloud,
			TokenExpiry: now.Add(-time.Hour),
		}
		gt.False(t, c.TokenExpiresWithin(now, 15*time.Minute))
	})

	t.Run("zero expiry is ignored", func(t *testing.T) {
		c := &model.Connection{Provider: types.ProviderGoogle}
		gt.False(t, c.TokenExpiresWithin(now, 15*time.Minute))
	})
}

func TestSyncedSince(t *testing.T) {
	now := time.Now()
	c := &model.Connection{LastSyncedAt: now.Add(-time.Hour)}
	gt.True(t, c.SyncedSince(now.Add(-24*time.Hour)))
	gt.False(t, c.SyncedSince(now))

	fresh := &model.Connection{}
	gt.False(t, fresh.SyncedSince(now.Add(-24*time.Hour)))
}
