package worker

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/async"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// SyncBookingJob pushes one booking to its staff member's calendars.
// Partial failures count as transient so the queue re-drives them; the
// business owner is notified only when the queue gives up.
type SyncBookingJob struct {
	uc        *usecase.UseCases
	repo      interfaces.Repository
	notifier  interfaces.Notifier
	bookingID types.BookingID
}

func NewSyncBookingJob(uc *usecase.UseCases, repo interfaces.Repository, notifier interfaces.Notifier, bookingID types.BookingID) *SyncBookingJob {
	return &SyncBookingJob{
		uc:        uc,
		repo:      repo,
		notifier:  notifier,
		bookingID: bookingID,
	}
}

func (j *SyncBookingJob) Name() string {
	return "sync_booking"
}

func (j *SyncBookingJob) Run(ctx context.Context) error {
	report, err := j.uc.SyncBooking(ctx, j.bookingID)
	if err != nil {
		return err
	}
	if !report.Succeeded() {
		return goerr.New("booking sync incomplete",
			goerr.T(types.ErrTagTransient),
			goerr.V("bookingID", j.bookingID),
			goerr.V("errors", report.Errors()))
	}
	return nil
}

// OnFailure notifies the business owner. Delivery is detached from the
// worker so a slow Slack API cannot stall the pool.
func (j *SyncBookingJob) OnFailure(ctx context.Context, jobErr error) {
	if j.notifier == nil {
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		booking, err := j.repo.Booking().Get(ctx, j.bookingID)
		if err != nil {
			logging.From(ctx).Warn("cannot notify sync failure, booking gone",
				"bookingID", j.bookingID, "error", err)
			return nil
		}
		return j.notifier.NotifySyncFailure(ctx, booking, []string{jobErr.Error()})
	})
}
