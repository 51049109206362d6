package worker

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/usecase"
)

// DeleteBookingJob removes the remote events of a cancelled booking. It
// carries the business id because the booking row may already be gone by
// the time the job runs.
type DeleteBookingJob struct {
	uc         *usecase.UseCases
	bookingID  types.BookingID
	businessID types.BusinessID
}

func NewDeleteBookingJob(uc *usecase.UseCases, bookingID types.BookingID, businessID types.BusinessID) *DeleteBookingJob {
	return &DeleteBookingJob{
		uc:         uc,
		bookingID:  bookingID,
		businessID: businessID,
	}
}

func (j *DeleteBookingJob) Name() string {
	return "delete_booking"
}

func (j *DeleteBookingJob) Run(ctx context.Context) error {
	report, err := j.uc.DeleteBooking(ctx, j.bookingID, j.businessID)
	if err != nil {
		return err
	}
	if !report.Succeeded() {
		return goerr.New("booking cleanup incomplete",
			goerr.T(types.ErrTagTransient),
			goerr.V("bookingID", j.bookingID),
			goerr.V("errors", report.Errors()))
	}
	return nil
}
