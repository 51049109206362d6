package worker

import (
	"context"
	"time"

	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/logging"
)

// TokenRefreshWorker periodically renews tokens that are about to expire,
// so syncs rarely hit an expired credential.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type TokenRefreshWorker struct {
	uc       *usecase.UseCases
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewTokenRefreshWorker(uc *usecase.UseCases, interval time.Duration) *TokenRefreshWorker {
	return &TokenRefreshWorker{
		uc:       uc,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. Does not block.
func (w *TokenRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("token refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion.
func (w *TokenRefreshWorker) Stop() {
	logging.Default().Info("token refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("token refresh worker stopped")
}

func (w *TokenRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)

		case <-w.stopCh:
			logging.Default().Info("token refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("token refresh worker context cancelled")
			return
		}
	}
}

func (w *TokenRefreshWorker) sweep(ctx context.Context) {
	refreshed, err := w.uc.RefreshExpiring(ctx)
	if err != nil {
		logging.Default().Error("token refresh sweep failed (will retry next interval)",
			"error", err.Error())
		return
	}
	if refreshed > 0 {
		logging.Default().Info("token refresh sweep completed", "refreshed", refreshed)
	}
}
