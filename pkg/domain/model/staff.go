package model

import (
	"time"

	"github.com/slotwise/calsync/pkg/domain/types"
)

// Staff is the staff member aggregate referenced by connections and
// bookings. Only the fields the sync subsystem needs are carried here.
type Staff struct {
	ID         types.StaffID
	BusinessID types.BusinessID
	Name       string
	Email      string

	CreatedAt time.Time
	UpdatedAt time.Time
}
