package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = types.ErrNotFound

type Firestore struct {
	client     *firestore.Client
	connection *connectionRepository
	mapping    *mappingRepository
	booking    *bookingRepository
	staff      *staffRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces all collections, used by tests to isolate
// runs against a shared project.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.connection.collectionPrefix = prefix
		f.mapping.collectionPrefix = prefix
		f.booking.collectionPrefix = prefix
		f.staff.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:     client,
		connection: newConnectionRepository(client),
		mapping:    newMappingRepository(client),
		booking:    newBookingRepository(client),
		staff:      newStaffRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Connection() interfaces.ConnectionRepository {
	return f.connection
}

func (f *Firestore) Mapping() interfaces.MappingRepository {
	return f.mapping
}

func (f *Firestore) Booking() interfaces.BookingRepository {
	return f.booking
}

func (f *Firestore) Staff() interfaces.StaffRepository {
	return f.staff
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func prefixed(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
