package interfaces

import (
	"context"

	"github.com/slotwise/calsync/pkg/domain/model"
)

// Notifier delivers terminal sync-failure notifications to the business
// owner. Delivery is best effort and must never block or fail a sync path.
type Notifier interface {
	NotifySyncFailure(ctx context.Context, booking *model.Booking, errs []string) error
	NotifyConnectionDeactivated(ctx context.Context, conn *model.Connection, reason string) error
}
