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

type bookingDocument struct {
	ID          string    `firestore:"id"`
	BusinessID  string    `firestore:"business_id"`
	StaffID     string    `firestore:"staff_id"`
	Title       string    `firestore:"title"`
	Customer    string    `firestore:"customer"`
	StartsAt    time.Time `firestore:"starts_at"`
	EndsAt      time.Time `firestore:"ends_at"`
	EventStatus string    `firestore:"event_status"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func toBookingDocument(b *model.Booking) *bookingDocument {
	return &bookingDocument{
		ID:          b.ID.String(),
		BusinessID:  b.BusinessID.String(),
		StaffID:     b.StaffID.String(),
		Title:       b.Title,
		Customer:    b.Customer,
		StartsAt:    b.StartsAt,
		EndsAt:      b.EndsAt,
		EventStatus: b.EventStatus.String(),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func (d *bookingDocument) toModel() *model.Booking {
	return &model.Booking{
		ID:          types.BookingID(d.ID),
		BusinessID:  types.BusinessID(d.BusinessID),
		StaffID:     types.StaffID(d.StaffID),
		Title:       d.Title,
		Customer:    d.Customer,
		StartsAt:    d.StartsAt,
		EndsAt:      d.EndsAt,
		EventStatus: types.EventStatus(d.EventStatus),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type bookingRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newBookingRepository(client *firestore.Client) *bookingRepository {
	return &bookingRepository{client: client}
}

func (r *bookingRepository) collection() string {
	return prefixed(r.collectionPrefix, "bookings")
}

func (r *bookingRepository) Put(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	created := *booking
	now := time.Now().UTC()
	if created.ID == "" {
		created.ID = types.NewBookingID()
		created.CreatedAt = now
	}
	created.EventStatus = created.EventStatus.Normalize()
	created.UpdatedAt = now

	docRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	if _, err := docRef.Set(ctx, toBookingDocument(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to put booking", goerr.V("bookingID", created.ID))
	}
	return &created, nil
}

func (r *bookingRepository) Get(ctx context.Context, id types.BookingID) (*model.Booking, error) {
	doc, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
		}
		return nil, goerr.Wrap(err, "failed to get booking", goerr.V("bookingID", id))
	}

	var d bookingDocument
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal booking", goerr.V("bookingID", id))
	}
	return d.toModel(), nil
}

func (r *bookingRepository) ListByStatus(ctx context.Context, businessID types.BusinessID, eventStatus types.EventStatus, limit int) ([]*model.Booking, error) {
	query := r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Where("event_status", "==", eventStatus.String()).
		OrderBy("created_at", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*model.Booking
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate bookings")
		}

		var d bookingDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal booking")
		}
		result = append(result, d.toModel())
	}
	return result, nil
}

func (r *bookingRepository) ListIDsByBusiness(ctx context.Context, businessID types.BusinessID) ([]types.BookingID, error) {
	iter := r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Select("id").
		Documents(ctx)
	defer iter.Stop()

	var ids []types.BookingID
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate bookings")
		}

		id, err := doc.DataAt("id")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read booking id")
		}
		ids = append(ids, types.BookingID(id.(string)))
	}
	return ids, nil
}

func (r *bookingRepository) UpdateEventStatus(ctx context.Context, id types.BookingID, eventStatus types.EventStatus) error {
	if _, err := r.client.Collection(r.collection()).Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "event_status", Value: eventStatus.String()},
		{Path: "updated_at", Value: time.Now().UTC()},
	}); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
		}
		return goerr.Wrap(err, "failed to update event status", goerr.V("bookingID", id))
	}
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id types.BookingID) error {
	docRef := r.client.Collection(r.collection()).Doc(id.String())

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "booking not found", goerr.V("bookingID", id))
		}
		return goerr.Wrap(err, "failed to get booking", goerr.V("bookingID", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete booking", goerr.V("bookingID", id))
	}
	return nil
}
