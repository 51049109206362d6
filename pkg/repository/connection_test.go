package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/repository/memory"
)

func runConnectionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put assigns ID and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID:  "biz-1",
			StaffID:     "staff-1",
			Provider:    types.ProviderGoogle,
			AccessToken: "at-1",
			Active:      true,
		})
		gt.NoError(t, err).Required()

		gt.Value(t, created.ID).NotEqual(types.ConnectionID(""))
		gt.Bool(t, created.CreatedAt.IsZero()).False()
		gt.Bool(t, created.UpdatedAt.IsZero()).False()
	})

	t.Run("Get retrieves stored connection", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID:   "biz-1",
			StaffID:      "staff-1",
			Provider:     types.ProviderCalDAV,
			ServerURL:    "https://dav.example.com/cal/",
			Username:     "alice",
			Password:     "app-password",
			CalendarID:   "work",
			Active:       true,
		})
		gt.NoError(t, err).Required()

		retrieved, err := repo.Connection().Get(ctx, created.ID)
		gt.NoError(t, err).Required()

		gt.Value(t, retrieved.Provider).Equal(types.ProviderCalDAV)
		gt.Value(t, retrieved.ServerURL).Equal("https://dav.example.com/cal/")
		gt.Value(t, retrieved.Username).Equal("alice")
		gt.Value(t, retrieved.Password).Equal("app-password")
		gt.Value(t, retrieved.CalendarID).Equal("work")
		gt.Bool(t, retrieved.Active).True()
	})

	t.Run("Get returns NotFound for missing connection", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Connection().Get(ctx, types.NewConnectionID())
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("Put deactivates active sibling of same staff and provider", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		second, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		old, err := repo.Connection().Get(ctx, first.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, old.Active).False()

		current, err := repo.Connection().Get(ctx, second.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, current.Active).True()
	})

	t.Run("Put keeps active connections of other providers", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		google, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		_, err = repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderMicrosoft,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		retrieved, err := repo.Connection().Get(ctx, google.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, retrieved.Active).True()
	})

	t.Run("ListActiveByStaff omits inactive connections", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		active, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		_, err = repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderMicrosoft,
			Active:     false,
		})
		gt.NoError(t, err).Required()

		conns, err := repo.Connection().ListActiveByStaff(ctx, "staff-1")
		gt.NoError(t, err).Required()
		gt.Array(t, conns).Length(1)
		gt.Value(t, conns[0].ID).Equal(active.ID)
	})

	t.Run("ListActiveByBusiness spans staff members", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, staffID := range []types.StaffID{"staff-1", "staff-2"} {
			_, err := repo.Connection().Put(ctx, &model.Connection{
				BusinessID: "biz-1",
				StaffID:    staffID,
				Provider:   types.ProviderGoogle,
				Active:     true,
			})
			gt.NoError(t, err).Required()
		}
		_, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-2",
			StaffID:    "staff-3",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		conns, err := repo.Connection().ListActiveByBusiness(ctx, "biz-1")
		gt.NoError(t, err).Required()
		gt.Array(t, conns).Length(2)
	})

	t.Run("ListExpiring filters by deadline and refreshability", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		expiring, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID:  "biz-1",
			StaffID:     "staff-1",
			Provider:    types.ProviderGoogle,
			TokenExpiry: now.Add(5 * time.Minute),
			Active:      true,
		})
		gt.NoError(t, err).Required()

		// Well beyond the deadline
		_, err = repo.Connection().Put(ctx, &model.Connection{
			BusinessID:  "biz-1",
			StaffID:     "staff-2",
			Provider:    types.ProviderGoogle,
			TokenExpiry: now.Add(2 * time.Hour),
			Active:      true,
		})
		gt.NoError(t, err).Required()

		// CalDAV has no token lifecycle
		_, err = repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-3",
			Provider:   types.ProviderCalDAV,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		conns, err := repo.Connection().ListExpiring(ctx, now.Add(15*time.Minute))
		gt.NoError(t, err).Required()
		gt.Array(t, conns).Length(1)
		gt.Value(t, conns[0].ID).Equal(expiring.ID)
	})

	t.Run("UpdateTokens keeps refresh token when rotation omits it", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID:   "biz-1",
			StaffID:      "staff-1",
			Provider:     types.ProviderGoogle,
			AccessToken:  "old-access",
			RefreshToken: "old-refresh",
			Active:       true,
		})
		gt.NoError(t, err).Required()

		expiry := time.Now().UTC().Add(time.Hour)
		gt.NoError(t, repo.Connection().UpdateTokens(ctx, created.ID, "new-access", "", expiry)).Required()

		retrieved, err := repo.Connection().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.AccessToken).Equal("new-access")
		gt.Value(t, retrieved.RefreshToken).Equal("old-refresh")
	})

	t.Run("UpdateSyncState records failure without touching last success", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderGoogle,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		syncedAt := time.Now().UTC().Add(-time.Hour)
		gt.NoError(t, repo.Connection().UpdateSyncState(ctx, created.ID, syncedAt, "")).Required()

		gt.NoError(t, repo.Connection().UpdateSyncState(ctx, created.ID, time.Now().UTC(), "rate limited")).Required()

		retrieved, err := repo.Connection().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.LastSyncError).Equal("rate limited")
		if diff := retrieved.LastSyncedAt.Sub(syncedAt); diff > time.Second || diff < -time.Second {
			t.Errorf("LastSyncedAt moved on failure: got %v, want %v", retrieved.LastSyncedAt, syncedAt)
		}
	})

	t.Run("Deactivate flags inactive with reason", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Connection().Put(ctx, &model.Connection{
			BusinessID: "biz-1",
			StaffID:    "staff-1",
			Provider:   types.ProviderMicrosoft,
			Active:     true,
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Connection().Deactivate(ctx, created.ID, "refresh token revoked")).Required()

		retrieved, err := repo.Connection().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, retrieved.Active).False()
		gt.Value(t, retrieved.LastSyncError).Equal("refresh token revoked")
	})
}

func TestConnectionRepository_Memory(t *testing.T) {
	runConnectionRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestConnectionRepository_Firestore(t *testing.T) {
	runConnectionRepositoryTest(t, newFirestoreRepo(t))
}
