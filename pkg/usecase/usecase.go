package usecase

import (
	"context"
	"time"

	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/utils/lockutil"
)

const (
	// DefaultRefreshWindow is how far ahead of expiry tokens are renewed.
	DefaultRefreshWindow = 15 * time.Minute

	// DefaultDeactivationGrace bounds how long a connection may keep
	// failing refresh before it is deactivated.
	DefaultDeactivationGrace = 24 * time.Hour
)

// AdapterFactory resolves the provider adapter for a connection.
// Implemented by provider.Registry; tests substitute fakes.
type AdapterFactory interface {
	Adapter(ctx context.Context, conn *model.Connection) (interfaces.Adapter, error)
}

// UseCases is the sync coordinator. All mutation of connections, mappings
// and booking sync state flows through here under per-row locking.
type UseCases struct {
	repo     interfaces.Repository
	adapters AdapterFactory
	notifier interfaces.Notifier

	bookingLocks *lockutil.KeyedMutex
	connLocks    *lockutil.KeyedMutex

	refreshWindow     time.Duration
	deactivationGrace time.Duration
	now               func() time.Time
}

type Option func(*UseCases)

// WithNotifier wires terminal-failure notification delivery.
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithRefreshWindow overrides the token refresh lookahead.
func WithRefreshWindow(window time.Duration) Option {
	return func(uc *UseCases) {
		uc.refreshWindow = window
	}
}

// WithDeactivationGrace overrides the refresh-failure grace period.
func WithDeactivationGrace(grace time.Duration) Option {
	return func(uc *UseCases) {
		uc.deactivationGrace = grace
	}
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, adapters AdapterFactory, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:              repo,
		adapters:          adapters,
		bookingLocks:      lockutil.NewKeyedMutex(),
		connLocks:         lockutil.NewKeyedMutex(),
		refreshWindow:     DefaultRefreshWindow,
		deactivationGrace: DefaultDeactivationGrace,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func bookingLockKey(id string) string {
	return "booking:" + id
}

func connLockKey(id string) string {
	return "connection:" + id
}
