package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type staffRepository struct {
	mu      sync.RWMutex
	members map[types.StaffID]*model.Staff
}

func newStaffRepository() *staffRepository {
	return &staffRepository{
		members: make(map[types.StaffID]*model.Staff),
	}
}

func copyStaff(s *model.Staff) *model.Staff {
	copied := *s
	return &copied
}

func (r *staffRepository) Put(ctx context.Context, staff *model.Staff) (*model.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyStaff(staff)
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = time.Now().UTC()

	r.members[created.ID] = created
	return copyStaff(created), nil
}

func (r *staffRepository) Get(ctx context.Context, id types.StaffID) (*model.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.members[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "staff not found", goerr.V("staffID", id))
	}
	return copyStaff(s), nil
}

func (r *staffRepository) ListByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Staff
	for _, s := range r.members {
		if s.BusinessID == businessID {
			result = append(result, copyStaff(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}
