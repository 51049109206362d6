package interfaces

import (
	"context"
	"time"

	"github.com/slotwise/calsync/pkg/domain/model"
)

// Adapter is the uniform capability set one provider implementation
// exposes. The coordinator stays provider-agnostic; each adapter owns its
// wire format, pagination and rate-limit handling. An adapter is bound to
// one connection's credentials at construction time.
type Adapter interface {
	// CreateEvent pushes a booking as a new remote event
	CreateEvent(ctx context.Context, booking *model.Booking) (*model.CreatedEvent, error)

	// UpdateEvent rewrites the remote event tracked by the mapping
	UpdateEvent(ctx context.Context, mapping *model.EventMapping, booking *model.Booking) error

	// DeleteEvent removes a remote event. A remote event that is already
	// gone is success, not an error.
	DeleteEvent(ctx context.Context, externalEventID string) error

	// ImportEvents lists remote events in the date range
	ImportEvents(ctx context.Context, from, to time.Time) ([]*model.RemoteEvent, error)

	// RefreshCredentials obtains fresh tokens. Adapters whose credentials
	// never expire return theirs unchanged.
	RefreshCredentials(ctx context.Context) (*model.Credentials, error)
}
