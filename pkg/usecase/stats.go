package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

// SyncStatistics aggregates mapping outcomes for a business.
func (uc *UseCases) SyncStatistics(ctx context.Context, businessID types.BusinessID) (*model.SyncStatistics, error) {
	stats, err := uc.repo.Mapping().Statistics(ctx, businessID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate statistics", goerr.V("businessID", businessID))
	}
	return stats, nil
}
