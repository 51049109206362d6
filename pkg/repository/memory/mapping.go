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

// mappingKey enforces the (connection, booking) uniqueness invariant
type mappingKey struct {
	connID    types.ConnectionID
	bookingID types.BookingID
}

type mappingRepository struct {
	mu       sync.RWMutex
	mappings map[mappingKey]*model.EventMapping
	byID     map[types.MappingID]mappingKey
}

func newMappingRepository() *mappingRepository {
	return &mappingRepository{
		mappings: make(map[mappingKey]*model.EventMapping),
		byID:     make(map[types.MappingID]mappingKey),
	}
}

func copyMapping(m *model.EventMapping) *model.EventMapping {
	copied := *m
	return &copied
}

func (r *mappingRepository) Upsert(ctx context.Context, mapping *model.EventMapping) (*model.EventMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := mappingKey{connID: mapping.ConnectionID, bookingID: mapping.BookingID}
	now := time.Now().UTC()

	if existing, exists := r.mappings[key]; exists {
		updated := copyMapping(mapping)
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = now
		r.mappings[key] = updated
		return copyMapping(updated), nil
	}

	created := copyMapping(mapping)
	if created.ID == "" {
		created.ID = types.NewMappingID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	r.mappings[key] = created
	r.byID[created.ID] = key
	return copyMapping(created), nil
}

func (r *mappingRepository) GetByBooking(ctx context.Context, connID types.ConnectionID, bookingID types.BookingID) (*model.EventMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.mappings[mappingKey{connID: connID, bookingID: bookingID}]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "mapping not found",
			goerr.V("connectionID", connID), goerr.V("bookingID", bookingID))
	}
	return copyMapping(m), nil
}

func (r *mappingRepository) GetByExternalID(ctx context.Context, connID types.ConnectionID, externalEventID string) (*model.EventMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mappings {
		if m.ConnectionID == connID && m.ExternalEventID == externalEventID && m.Live() {
			return copyMapping(m), nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "mapping not found",
		goerr.V("connectionID", connID), goerr.V("externalEventID", externalEventID))
}

func (r *mappingRepository) ListByBooking(ctx context.Context, bookingID types.BookingID) ([]*model.EventMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.EventMapping
	for _, m := range r.mappings {
		if m.BookingID == bookingID && m.Live() {
			result = append(result, copyMapping(m))
		}
	}
	sortMappings(result)
	return result, nil
}

func (r *mappingRepository) ListByConnection(ctx context.Context, connID types.ConnectionID) ([]*model.EventMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.EventMapping
	for _, m := range r.mappings {
		if m.ConnectionID == connID && m.Live() {
			result = append(result, copyMapping(m))
		}
	}
	sortMappings(result)
	return result, nil
}

func (r *mappingRepository) ListOrphans(ctx context.Context, businessID types.BusinessID, liveBookingIDs []types.BookingID) ([]*model.EventMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make(map[types.BookingID]bool, len(liveBookingIDs))
	for _, id := range liveBookingIDs {
		live[id] = true
	}

	var result []*model.EventMapping
	for _, m := range r.mappings {
		if m.BusinessID == businessID && m.Live() && !live[m.BookingID] {
			result = append(result, copyMapping(m))
		}
	}
	sortMappings(result)
	return result, nil
}

func (r *mappingRepository) MarkDeleted(ctx context.Context, id types.MappingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, exists := r.byID[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "mapping not found", goerr.V("mappingID", id))
	}

	m := r.mappings[key]
	m.Status = types.SyncStatusDeleted
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *mappingRepository) Statistics(ctx context.Context, businessID types.BusinessID) (*model.SyncStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &model.SyncStatistics{BusinessID: businessID}
	for _, m := range r.mappings {
		if m.BusinessID != businessID {
			continue
		}
		stats.TotalAttempts += m.Attempts
		switch m.Status {
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

func sortMappings(mappings []*model.EventMapping) {
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].ID < mappings[j].ID
	})
}
