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

type staffDocument struct {
	ID         string    `firestore:"id"`
	BusinessID string    `firestore:"business_id"`
	Name       string    `firestore:"name"`
	Email      string    `firestore:"email"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

type staffRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newStaffRepository(client *firestore.Client) *staffRepository {
	return &staffRepository{client: client}
}

func (r *staffRepository) collection() string {
	return prefixed(r.collectionPrefix, "staff")
}

func (r *staffRepository) Put(ctx context.Context, staff *model.Staff) (*model.Staff, error) {
	created := *staff
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	doc := &staffDocument{
		ID:         created.ID.String(),
		BusinessID: created.BusinessID.String(),
		Name:       created.Name,
		Email:      created.Email,
		CreatedAt:  created.CreatedAt,
		UpdatedAt:  created.UpdatedAt,
	}

	if _, err := r.client.Collection(r.collection()).Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to put staff", goerr.V("staffID", created.ID))
	}
	return &created, nil
}

func (r *staffRepository) Get(ctx context.Context, id types.StaffID) (*model.Staff, error) {
	doc, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "staff not found", goerr.V("staffID", id))
		}
		return nil, goerr.Wrap(err, "failed to get staff", goerr.V("staffID", id))
	}

	var d staffDocument
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal staff", goerr.V("staffID", id))
	}

	return &model.Staff{
		ID:         types.StaffID(d.ID),
		BusinessID: types.BusinessID(d.BusinessID),
		Name:       d.Name,
		Email:      d.Email,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func (r *staffRepository) ListByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Staff, error) {
	iter := r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Staff
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate staff")
		}

		var d staffDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal staff")
		}
		result = append(result, &model.Staff{
			ID:         types.StaffID(d.ID),
			BusinessID: types.BusinessID(d.BusinessID),
			Name:       d.Name,
			Email:      d.Email,
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	return result, nil
}
