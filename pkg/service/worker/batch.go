package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// BatchKind selects which batch pass a BatchJob runs.
type BatchKind string

const (
	BatchRetryFailed BatchKind = "retry_failed"
	BatchSyncPending BatchKind = "sync_pending"
	BatchFullResync  BatchKind = "full_resync"
)

// DefaultBatchLimit bounds one retry or pending pass.
const DefaultBatchLimit = 50

// BatchJob runs one sync pass over a business's bookings. The pass itself
// tolerates per-booking failures; those bookings stay failed and the next
// pass picks them up again.
type BatchJob struct {
	uc         *usecase.UseCases
	kind       BatchKind
	businessID types.BusinessID
	limit      int
}

func NewBatchJob(uc *usecase.UseCases, kind BatchKind, businessID types.BusinessID, limit int) *BatchJob {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	return &BatchJob{
		uc:         uc,
		kind:       kind,
		businessID: businessID,
		limit:      limit,
	}
}

func (j *BatchJob) Name() string {
	return "batch_" + string(j.kind)
}

func (j *BatchJob) Run(ctx context.Context) error {
	var outcome *model.RetryOutcome
	var err error

	switch j.kind {
	case BatchRetryFailed:
		outcome, err = j.uc.RetryFailedSyncs(ctx, j.businessID, j.limit)
	case BatchSyncPending:
		outcome, err = j.uc.SyncPendingBookings(ctx, j.businessID, j.limit)
	case BatchFullResync:
		outcome, err = j.uc.FullResync(ctx, j.businessID)
	default:
		return goerr.New("unknown batch kind", goerr.V("kind", j.kind))
	}
	if err != nil {
		return err
	}

	logging.From(ctx).Info("batch pass completed",
		"kind", j.kind, "businessID", j.businessID,
		"attempted", outcome.TotalAttempted,
		"successful", outcome.Successful,
		"failed", outcome.Failed)
	return nil
}

// BulkImportJob imports availability for every staff member of a business.
// Starts are staggered so a large roster does not hammer one provider at
// once.
type BulkImportJob struct {
	uc          *usecase.UseCases
	repo        interfaces.Repository
	businessID  types.BusinessID
	stagger     time.Duration
	concurrency int
}

func NewBulkImportJob(uc *usecase.UseCases, repo interfaces.Repository, businessID types.BusinessID, stagger time.Duration) *BulkImportJob {
	return &BulkImportJob{
		uc:          uc,
		repo:        repo,
		businessID:  businessID,
		stagger:     stagger,
		concurrency: 4,
	}
}

func (j *BulkImportJob) Name() string {
	return "bulk_import"
}

func (j *BulkImportJob) Run(ctx context.Context) error {
	staff, err := j.repo.Staff().ListByBusiness(ctx, j.businessID)
	if err != nil {
		return goerr.Wrap(err, "failed to list staff", goerr.V("businessID", j.businessID))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, s := range staff {
		delay := time.Duration(i) * j.stagger
		staffID := s.ID
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(delay):
			}

			outcome, err := j.uc.ImportAvailability(gctx, staffID, time.Time{}, time.Time{})
			if err != nil {
				return goerr.Wrap(err, "availability import failed", goerr.V("staffID", staffID))
			}
			logging.From(gctx).Info("availability imported",
				"staffID", staffID, "created", outcome.Created, "pruned", outcome.Pruned)
			return nil
		})
	}
	return g.Wait()
}
