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

func runStaffRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and Get roundtrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Staff().Put(ctx, &model.Staff{
			ID:         "staff-1",
			BusinessID: "biz-1",
			Name:       "Alice",
			Email:      "alice@example.com",
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		retrieved, err := repo.Staff().Get(ctx, "staff-1")
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.Name).Equal("Alice")
		gt.Value(t, retrieved.Email).Equal("alice@example.com")
		gt.Value(t, retrieved.BusinessID).Equal(created.BusinessID)
	})

	t.Run("Get returns NotFound for missing staff", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Staff().Get(ctx, "staff-missing")
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("ListByBusiness filters by business", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Staff().Put(ctx, &model.Staff{ID: "staff-1", BusinessID: "biz-1", Name: "Alice"})
		gt.NoError(t, err).Required()
		_, err = repo.Staff().Put(ctx, &model.Staff{ID: "staff-2", BusinessID: "biz-1", Name: "Bob"})
		gt.NoError(t, err).Required()
		_, err = repo.Staff().Put(ctx, &model.Staff{ID: "staff-3", BusinessID: "biz-2", Name: "Carol"})
		gt.NoError(t, err).Required()

		staff, err := repo.Staff().ListByBusiness(ctx, "biz-1")
		gt.NoError(t, err).Required()
		gt.Array(t, staff).Length(2)
	})
}

func TestStaffRepository_Memory(t *testing.T) {
	runStaffRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestStaffRepository_Firestore(t *testing.T) {
	runStaffRepositoryTest(t, newFirestoreRepo(t))
}
