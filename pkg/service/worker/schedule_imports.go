package worker

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// ScheduleImportsJob enqueues one availability import per staff member
// with at least one active connection. Staff with multiple connections
// still get a single import job; the import itself covers all of them.
type ScheduleImportsJob struct {
	uc         *usecase.UseCases
	repo       interfaces.Repository
	queue      *Queue
	businessID types.BusinessID
}

func NewScheduleImportsJob(uc *usecase.UseCases, repo interfaces.Repository, queue *Queue, businessID types.BusinessID) *ScheduleImportsJob {
	return &ScheduleImportsJob{
		uc:         uc,
		repo:       repo,
		queue:      queue,
		businessID: businessID,
	}
}

func (j *ScheduleImportsJob) Name() string {
	return "schedule_imports"
}

func (j *ScheduleImportsJob) Run(ctx context.Context) error {
	conns, err := j.repo.Connection().ListActiveByBusiness(ctx, j.businessID)
	if err != nil {
		return goerr.Wrap(err, "failed to list connections", goerr.V("businessID", j.businessID))
	}

	seen := make(map[types.StaffID]bool, len(conns))
	scheduled := 0
	for _, conn := range conns {
		if seen[conn.StaffID] {
			continue
		}
		seen[conn.StaffID] = true

		job := NewImportAvailabilityJob(j.uc, j.repo, j.queue, conn.StaffID)
		if err := j.queue.Enqueue(job); err != nil {
			logging.From(ctx).Warn("import scheduling skipped",
				"staffID", conn.StaffID, "error", err)
			continue
		}
		scheduled++
	}

	logging.From(ctx).Info("availability imports scheduled",
		"businessID", j.businessID, "count", scheduled)
	return nil
}
