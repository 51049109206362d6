package interfaces

import (
	"context"

	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type StaffRepository interface {
	// Put creates or replaces a staff member
	Put(ctx context.Context, staff *model.Staff) (*model.Staff, error)

	// Get retrieves a staff member by ID
	Get(ctx context.Context, id types.StaffID) (*model.Staff, error)

	// ListByBusiness returns all staff members of a business
	ListByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Staff, error)
}
