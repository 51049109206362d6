package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

const (
	// importRescheduleBase and importRescheduleJitter spread the periodic
	// re-imports over a 4 to 6 hour window.
	importRescheduleBase   = 4 * time.Hour
	importRescheduleJitter = 2 * time.Hour
)

// ImportAvailabilityJob pulls a staff member's remote events into
// availability-blocking mappings and reschedules itself. Jobs for staff
// who no longer exist are discarded silently.
type ImportAvailabilityJob struct {
	uc      *usecase.UseCases
	repo    interfaces.Repository
	queue   *Queue
	staffID types.StaffID
}

func NewImportAvailabilityJob(uc *usecase.UseCases, repo interfaces.Repository, queue *Queue, staffID types.StaffID) *ImportAvailabilityJob {
	return &ImportAvailabilityJob{
		uc:      uc,
		repo:    repo,
		queue:   queue,
		staffID: staffID,
	}
}

func (j *ImportAvailabilityJob) Name() string {
	return "import_availability"
}

func (j *ImportAvailabilityJob) Run(ctx context.Context) error {
	if _, err := j.repo.Staff().Get(ctx, j.staffID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			logging.From(ctx).Info("discarding import for removed staff", "staffID", j.staffID)
			return nil
		}
		return err
	}

	outcome, err := j.uc.ImportAvailability(ctx, j.staffID, time.Time{}, time.Time{})
	if err != nil {
		return err
	}

	logging.From(ctx).Info("availability imported",
		"staffID", j.staffID, "created", outcome.Created, "pruned", outcome.Pruned)

	if j.queue != nil {
		j.queue.EnqueueAfter(j, importRescheduleBase+rand.N(importRescheduleJitter))
	}
	return nil
}
