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

type connectionDocument struct {
	ID            string    `firestore:"id"`
	BusinessID    string    `firestore:"business_id"`
	StaffID       string    `firestore:"staff_id"`
	Provider      string    `firestore:"provider"`
	AccessToken   string    `firestore:"access_token"`
	RefreshToken  string    `firestore:"refresh_token"`
	TokenExpiry   time.Time `firestore:"token_expiry"`
	ServerURL     string    `firestore:"server_url"`
	Username      string    `firestore:"username"`
	Password      string    `firestore:"password"`
	CalendarID    string    `firestore:"calendar_id"`
	Active        bool      `firestore:"active"`
	LastSyncedAt  time.Time `firestore:"last_synced_at"`
	LastSyncError string    `firestore:"last_sync_error"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

func toConnectionDocument(c *model.Connection) *connectionDocument {
	return &connectionDocument{
		ID:            c.ID.String(),
		BusinessID:    c.BusinessID.String(),
		StaffID:       c.StaffID.String(),
		Provider:      c.Provider.String(),
		AccessToken:   c.AccessToken,
		RefreshToken:  c.RefreshToken,
		TokenExpiry:   c.TokenExpiry,
		ServerURL:     c.ServerURL,
		Username:      c.Username,
		Password:      c.Password,
		CalendarID:    c.CalendarID,
		Active:        c.Active,
		LastSyncedAt:  c.LastSyncedAt,
		LastSyncError: c.LastSyncError,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (d *connectionDocument) toModel() *model.Connection {
	return &model.Connection{
		ID:            types.ConnectionID(d.ID),
		BusinessID:    types.BusinessID(d.BusinessID),
		StaffID:       types.StaffID(d.StaffID),
		Provider:      types.ProviderType(d.Provider),
		AccessToken:   d.AccessToken,
		RefreshToken:  d.RefreshToken,
		TokenExpiry:   d.TokenExpiry,
		ServerURL:     d.ServerURL,
		Username:      d.Username,
		Password:      d.Password,
		CalendarID:    d.CalendarID,
		Active:        d.Active,
		LastSyncedAt:  d.LastSyncedAt,
		LastSyncError: d.LastSyncError,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type connectionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newConnectionRepository(client *firestore.Client) *connectionRepository {
	return &connectionRepository{client: client}
}

func (r *connectionRepository) collection() string {
	return prefixed(r.collectionPrefix, "connections")
}

func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	created := *conn
	now := time.Now().UTC()
	if created.ID == "" {
		created.ID = types.NewConnectionID()
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	// Supersede any other active connection of the same (staff, provider)
	// pair before activating this one.
	if created.Active {
		iter := r.client.Collection(r.collection()).
			Where("staff_id", "==", created.StaffID.String()).
			Where("provider", "==", created.Provider.String()).
			Where("active", "==", true).
			Documents(ctx)
		defer iter.Stop()

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, goerr.Wrap(err, "failed to scan sibling connections")
			}
			if doc.Ref.ID == created.ID.String() {
				continue
			}
			if _, err := doc.Ref.Update(ctx, []firestore.Update{
				{Path: "active", Value: false},
				{Path: "updated_at", Value: now},
			}); err != nil {
				return nil, goerr.Wrap(err, "failed to deactivate sibling connection")
			}
		}
	}

	docRef := r.client.Collection(r.collection()).Doc(created.ID.String())
	if _, err := docRef.Set(ctx, toConnectionDocument(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to put connection", goerr.V("connectionID", created.ID))
	}
	return &created, nil
}

func (r *connectionRepository) Get(ctx context.Context, id types.ConnectionID) (*model.Connection, error) {
	doc, err := r.client.Collection(r.collection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V("connectionID", id))
	}

	var d connectionDocument
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal connection", goerr.V("connectionID", id))
	}
	return d.toModel(), nil
}

func (r *connectionRepository) ListActiveByStaff(ctx context.Context, staffID types.StaffID) ([]*model.Connection, error) {
	return r.list(ctx, r.client.Collection(r.collection()).
		Where("staff_id", "==", staffID.String()).
		Where("active", "==", true).
		Documents(ctx))
}

func (r *connectionRepository) ListActiveByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Connection, error) {
	return r.list(ctx, r.client.Collection(r.collection()).
		Where("business_id", "==", businessID.String()).
		Where("active", "==", true).
		Documents(ctx))
}

func (r *connectionRepository) ListExpiring(ctx context.Context, deadline time.Time) ([]*model.Connection, error) {
	conns, err := r.list(ctx, r.client.Collection(r.collection()).
		Where("active", "==", true).
		Where("token_expiry", "<", deadline).
		Documents(ctx))
	if err != nil {
		return nil, err
	}

	// Zero expiry and non-refreshable providers are filtered client side;
	// Firestore has no "is not zero" predicate.
	var result []*model.Connection
	for _, c := range conns {
		if c.Provider.Refreshable() && !c.TokenExpiry.IsZero() {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *connectionRepository) list(ctx context.Context, iter *firestore.DocumentIterator) ([]*model.Connection, error) {
	defer iter.Stop()

	var result []*model.Connection
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate connections")
		}

		var d connectionDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal connection")
		}
		result = append(result, d.toModel())
	}
	return result, nil
}

func (r *connectionRepository) UpdateTokens(ctx context.Context, id types.ConnectionID, accessToken, refreshToken string, expiry time.Time) error {
	updates := []firestore.Update{
		{Path: "access_token", Value: accessToken},
		{Path: "token_expiry", Value: expiry},
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if refreshToken != "" {
		updates = append(updates, firestore.Update{Path: "refresh_token", Value: refreshToken})
	}

	if _, err := r.client.Collection(r.collection()).Doc(id.String()).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
		}
		return goerr.Wrap(err, "failed to update tokens", goerr.V("connectionID", id))
	}
	return nil
}

func (r *connectionRepository) UpdateSyncState(ctx context.Context, id types.ConnectionID, syncedAt time.Time, syncErr string) error {
	updates := []firestore.Update{
		{Path: "last_sync_error", Value: syncErr},
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if syncErr == "" {
		updates = append(updates, firestore.Update{Path: "last_synced_at", Value: syncedAt})
	}

	if _, err := r.client.Collection(r.collection()).Doc(id.String()).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
		}
		return goerr.Wrap(err, "failed to update sync state", goerr.V("connectionID", id))
	}
	return nil
}

func (r *connectionRepository) Deactivate(ctx context.Context, id types.ConnectionID, reason string) error {
	updates := []firestore.Update{
		{Path: "active", Value: false},
		{Path: "last_sync_error", Value: reason},
		{Path: "updated_at", Value: time.Now().UTC()},
	}

	if _, err := r.client.Collection(r.collection()).Doc(id.String()).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
		}
		return goerr.Wrap(err, "failed to deactivate connection", goerr.V("connectionID", id))
	}
	return nil
}
