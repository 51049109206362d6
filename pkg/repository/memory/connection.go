package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
)

type connectionRepository struct {
	mu    sync.RWMutex
	conns map[types.ConnectionID]*model.Connection
}

func newConnectionRepository() *connectionRepository {
	return &connectionRepository{
		conns: make(map[types.ConnectionID]*model.Connection),
	}
}

func copyConnection(c *model.Connection) *model.Connection {
	copied := *c
	return &copied
}

func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyConnection(conn)
	if created.ID == "" {
		created.ID = types.NewConnectionID()
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = time.Now().UTC()

	// One active connection per (staff, provider): activating this one
	// supersedes any other active sibling.
	if created.Active {
		for _, existing := range r.conns {
			if existing.ID != created.ID &&
				existing.StaffID == created.StaffID &&
				existing.Provider == created.Provider &&
				existing.Active {
				existing.Active = false
				existing.UpdatedAt = created.UpdatedAt
			}
		}
	}

	r.conns[created.ID] = created
	return copyConnection(created), nil
}

func (r *connectionRepository) Get(ctx context.Context, id types.ConnectionID) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
	}
	return copyConnection(conn), nil
}

func (r *connectionRepository) ListActiveByStaff(ctx context.Context, staffID types.StaffID) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Connection
	for _, conn := range r.conns {
		if conn.StaffID == staffID && conn.Active {
			result = append(result, copyConnection(conn))
		}
	}
	sortConnections(result)
	return result, nil
}

func (r *connectionRepository) ListActiveByBusiness(ctx context.Context, businessID types.BusinessID) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Connection
	for _, conn := range r.conns {
		if conn.BusinessID == businessID && conn.Active {
			result = append(result, copyConnection(conn))
		}
	}
	sortConnections(result)
	return result, nil
}

func (r *connectionRepository) ListExpiring(ctx context.Context, deadline time.Time) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Connection
	for _, conn := range r.conns {
		if !conn.Active || !conn.Provider.Refreshable() {
			continue
		}
		if !conn.TokenExpiry.IsZero() && conn.TokenExpiry.Before(deadline) {
			result = append(result, copyConnection(conn))
		}
	}
	sortConnections(result)
	return result, nil
}

func (r *connectionRepository) UpdateTokens(ctx context.Context, id types.ConnectionID, accessToken, refreshToken string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
	}

	conn.AccessToken = accessToken
	if refreshToken != "" {
		conn.RefreshToken = refreshToken
	}
	conn.TokenExpiry = expiry
	conn.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *connectionRepository) UpdateSyncState(ctx context.Context, id types.ConnectionID, syncedAt time.Time, syncErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
	}

	if syncErr == "" {
		conn.LastSyncedAt = syncedAt
	}
	conn.LastSyncError = syncErr
	conn.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *connectionRepository) Deactivate(ctx context.Context, id types.ConnectionID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("connectionID", id))
	}

	conn.Active = false
	conn.LastSyncError = reason
	conn.UpdatedAt = time.Now().UTC()
	return nil
}

func sortConnections(conns []*model.Connection) {
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].ID < conns[j].ID
	})
}
