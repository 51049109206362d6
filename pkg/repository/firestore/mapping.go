package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mappingDocument struct {
	ID                 string    `firestore:"id"`
	BusinessID         string    `firestore:"business_id"`
	ConnectionID       string    `firestore:"connection_id"`
	BookingID          string    `firestore:"booking_id"`
	ExternalEventID    string    `firestore:"external_event_id"`
	ExternalCalendarID string    `firestore:"external_calendar_id"`
	Status             string    `firestore:"status"`
	LastError          string    `firestore:"last_error"`
	Attempts           int       `firestore:"attempts"`
	CreatedAt          time.Time `firestore:"created_at"`
	UpdatedAt          time.Time `firestore:"updated_at"`
}

func toMappingDocument(m *model.EventMapping) *mappingDocument {
	return &mappingDocument{
		ID:                 m.ID.String(),
		BusinessID:         m.BusinessID.String(),
		ConnectionID:       m.ConnectionID.String(),
		BookingID:          m.BookingID.String(),
		ExternalEventID:    m.ExternalEventID,
		ExternalCalendarID: m.ExternalCalendarID,
		Status:             m.Status.String(),
		LastError:          m.LastError,
		Attempts:           m.Attempts,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func (d *mappingDocument) toModel() *model.EventMapping {
	return &model.EventMapping{
		ID:                 types.MappingID(d.ID),
		BusinessID:         types.BusinessID(d.BusinessID),
		ConnectionID:       types.ConnectionID(d.ConnectionID),
		BookingID:          types.BookingID(d.BookingID),
		ExternalEventID:    d.ExternalEventID,
		ExternalCalendarID: d.ExternalCalendarID,
		Status:             types.SyncStatus(d.Status),
		LastError:          d.LastError,
		Attempts:           d.Attempts,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type mappingRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMappingRepository(client *firestore.Client) *mappingRepository {
	return &mappingRepository{client: client}
}

func (r *mappingRepository) collection() string {
	return prefixed(r.collectionPrefix, "event_mappings")
}

// docID keys the document by (connection, booking) so Upsert is a plain
// Set and the uniqueness invariant is structural.
func mappingDocID(connID types.ConnectionID, bookingID types.BookingID) string {
	return connID.String() + ":" + bookingID.String()
}

func (r *mappingRepository) Upsert(ctx context.Context, mapping *model.EventMapping) (*model.EventMapping, error) {
	docRef := r.client.Collection(r.collection()).Doc(mappingDocID(mapping.ConnectionID, mapping.BookingID))
	now := time.Now().UTC()

	updated := *mapping
	updated.UpdatedAt = now

	existing, err := docRef.Get(ctx)
	switch {
	case err == nil:
		var d mappingDocument
		if err := existing.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mapping")
		}
		updated.ID = types.MappingID(d.ID)
		updated.CreatedAt = d.CreatedAt
	case status.Code(err) == codes.NotFound:
		if updated.ID == "" {
			updated.ID = types.NewMappingID()
		}
		updated.CreatedAt = now
	default:
		return nil, goerr.Wrap(err, "failed to get mapping")
	}

	if _, err := docRef.Set(ctx, toMappingDocument(&updated)); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert mapping",
			goerr.V("connectionID", mapping.ConnectionID), goerr.V("bookingID", mapping.BookingID))
	}
	return &updated, nil
}

func (r *mappingRepository) GetByBooking(ctx context.Context, connID types.ConnectionID, bookingID types.BookingID) (*model.EventMapping, error) {
	doc, err := r.client.Collection(r.collection()).Doc(mappingDocID(connID, bookingID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "mapping not found",
				goerr.V("connectionID", connID), goerr.V("bookingID", bookingID))
		}
		return nil, goerr.Wrap(err, "failed to get mapping")
	}

	var d mappingDocument
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal mapping")
	}
	return d.toModel(), nil
}

func (r *mappingRepository) GetByExternalID(ctx context.Context, connID types.ConnectionID, externalEventID string) (*model.EventMapping, error) {
	iter := r.client.Collection(r.collection()).
		Where("connection_id", "==", connID.String()).
		Where("external_event_id", "==", externalEventID).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mappings")
		}

		var d mappingDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mapping")
		}
		if m := d.toModel(); m.Live() {
			return m, nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "mapping not found",
		goerr.V("connectionID", connID), goerr.V("externalEventID", externalEventID))
}

func (r *mappingRepository) ListByBooking(ctx context.Context, bookingID types.BookingID) ([]*model.EventMapping, error) {
	return r.listLive(ctx, r.client.Collection(r.collection()).
		Where("booking_id", "==", bookingID.String()).
		Documents(ctx))
}

func (r *mappingRepository) ListByConnection(ctx context.Context, connID types.ConnectionID) ([]*model.EventMapping, error) {
	return r.listLive(ctx, r.client.Collection(r.collection()).
		Where("connection_id", "==", connID.String()).
		Documents(ctx))
}

func (r *mappingRepository) ListOrphans(ctx context.Context, businessID types.BusinessID, liveBookingIDs []types.BookingID) ([]*model.EventMapping, error) {
	mappings, err := r.listLive(ctx, r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Documents(ctx))
	if err != nil {
		return nil, err
	}

	live := make(map[types.BookingID]bool, len(liveBookingIDs))
	for _, id := range liveBookingIDs {
		live[id] = true
	}

	var orphans []*model.EventMapping
	for _, m := range mappings {
		if !live[m.BookingID] {
			orphans = append(orphans, m)
		}
	}
	return orphans, nil
}

func (r *mappingRepository) listLive(ctx context.Context, iter *firestore.DocumentIterator) ([]*model.EventMapping, error) {
	defer iter.Stop()

	var result []*model.EventMapping
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mappings")
		}

		var d mappingDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mapping")
		}
		if m := d.toModel(); m.Live() {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *mappingRepository) MarkDeleted(ctx context.Context, id types.MappingID) error {
	iter := r.client.Collection(r.collection()).
		Where("id", "==", id.String()).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return goerr.Wrap(ErrNotFound, "mapping not found", goerr.V("mappingID", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to find mapping", goerr.V("mappingID", id))
	}

	if _, err := doc.Ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: types.SyncStatusDeleted.String()},
		{Path: "updated_at", Value: time.Now().UTC()},
	}); err != nil {
		return goerr.Wrap(err, "failed to mark mapping deleted", goerr.V("mappingID", id))
	}
	return nil
}

func (r *mappingRepository) Statistics(ctx context.Context, businessID types.BusinessID) (*model.SyncStatistics, error) {
	iter := r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Documents(ctx)
	defer iter.Stop()

	stats := &model.SyncStatistics{BusinessID: businessID}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mappings")
		}

		var d mappingDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mapping")
		}

		stats.TotalAttempts += d.Attempts
		switch types.SyncStatus(d.Status) {
		case types.SyncStatusSynced:
			stats.Successful++
		case types.SyncStatusFailed:
			stats.Failed++
		case types.SyncStatusPending:
			stats.Pending++
		}
	}
	return stats, nil
}
