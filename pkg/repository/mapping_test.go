package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/repository/memory"
)

func runMappingRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert creates then updates without duplicating", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-1",
			ExternalEventID: "evt-1",
			Status:          types.SyncStatusPending,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual(types.MappingID(""))
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		updated, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-1",
			ExternalEventID: "evt-1",
			Status:          types.SyncStatusSynced,
			Attempts:        2,
		})
		gt.NoError(t, err).Required()

		gt.Value(t, updated.ID).Equal(created.ID)
		gt.Bool(t, updated.CreatedAt.Equal(created.CreatedAt)).True()
		gt.Value(t, updated.Status).Equal(types.SyncStatusSynced)

		all, err := repo.Mapping().ListByConnection(ctx, "conn-1")
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(1)
	})

	t.Run("GetByBooking returns mapping regardless of status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-1",
			ExternalEventID: "evt-1",
			Status:          types.SyncStatusSynced,
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Mapping().MarkDeleted(ctx, created.ID)).Required()

		retrieved, err := repo.Mapping().GetByBooking(ctx, "conn-1", "booking-1")
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.Status).Equal(types.SyncStatusDeleted)
	})

	t.Run("GetByBooking returns NotFound for missing mapping", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Mapping().GetByBooking(ctx, "conn-1", "booking-missing")
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("GetByExternalID finds only live mappings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-1",
			ExternalEventID: "evt-1",
			Status:          types.SyncStatusSynced,
		})
		gt.NoError(t, err).Required()

		found, err := repo.Mapping().GetByExternalID(ctx, "conn-1", "evt-1")
		gt.NoError(t, err).Required()
		gt.Value(t, found.ID).Equal(created.ID)

		gt.NoError(t, repo.Mapping().MarkDeleted(ctx, created.ID)).Required()

		_, err = repo.Mapping().GetByExternalID(ctx, "conn-1", "evt-1")
		gt.Value(t, err).NotNil()
	})

	t.Run("ListByBooking spans connections and omits deleted", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, connID := range []types.ConnectionID{"conn-1", "conn-2"} {
			_, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
				BusinessID:      "biz-1",
				ConnectionID:    connID,
				BookingID:       "booking-1",
				ExternalEventID: "evt-" + connID.String(),
				Status:          types.SyncStatusSynced,
			})
			gt.NoError(t, err).Required()
		}

		deleted, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-3",
			BookingID:       "booking-1",
			ExternalEventID: "evt-gone",
			Status:          types.SyncStatusSynced,
		})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Mapping().MarkDeleted(ctx, deleted.ID)).Required()

		mappings, err := repo.Mapping().ListByBooking(ctx, "booking-1")
		gt.NoError(t, err).Required()
		gt.Array(t, mappings).Length(2)
	})

	t.Run("ListOrphans returns live mappings of destroyed bookings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		orphan, err := repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-gone",
			ExternalEventID: "evt-1",
			Status:          types.SyncStatusSynced,
		})
		gt.NoError(t, err).Required()

		_, err = repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    "conn-1",
			BookingID:       "booking-alive",
			ExternalEventID: "evt-2",
			Status:          types.SyncStatusSynced,
		})
		gt.NoError(t, err).Required()

		orphans, err := repo.Mapping().ListOrphans(ctx, "biz-1", []types.BookingID{"booking-alive"})
		gt.NoError(t, err).Required()
		gt.Array(t, orphans).Length(1)
		gt.Value(t, orphans[0].ID).Equal(orphan.ID)
	})

	t.Run("MarkDeleted returns NotFound for missing mapping", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Mapping().MarkDeleted(ctx, types.NewMappingID())
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("Statistics aggregates outcomes per business", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		seed := []*model.EventMapping{
			{BusinessID: "biz-1", ConnectionID: "conn-1", BookingID: "b-1", ExternalEventID: "e-1", Status: types.SyncStatusSynced, Attempts: 1},
			{BusinessID: "biz-1", ConnectionID: "conn-1", BookingID: "b-2", ExternalEventID: "e-2", Status: types.SyncStatusSynced, Attempts: 2},
			{BusinessID: "biz-1", ConnectionID: "conn-1", BookingID: "b-3", Status: types.SyncStatusFailed, Attempts: 3},
			{BusinessID: "biz-1", ConnectionID: "conn-1", BookingID: "b-4", Status: types.SyncStatusPending},
			{BusinessID: "biz-2", ConnectionID: "conn-2", BookingID: "b-5", ExternalEventID: "e-5", Status: types.SyncStatusSynced, Attempts: 1},
		}
		for _, m := range seed {
			_, err := repo.Mapping().Upsert(ctx, m)
			gt.NoError(t, err).Required()
		}

		stats, err := repo.Mapping().Statistics(ctx, "biz-1")
		gt.NoError(t, err).Required()

		gt.Number(t, stats.Successful).Equal(2)
		gt.Number(t, stats.Failed).Equal(1)
		gt.Number(t, stats.Pending).Equal(1)
		gt.Number(t, stats.TotalAttempts).Equal(6)
	})
}

func TestMappingRepository_Memory(t *testing.T) {
	runMappingRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestMappingRepository_Firestore(t *testing.T) {
	runMappingRepositoryTest(t, newFirestoreRepo(t))
}
