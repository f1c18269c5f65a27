package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// RollbackStore is an in-memory implementation of storage.RollbackStore.
type RollbackStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RollbackRecord // keyed by record ID
}

// NewRollbackStore creates a new in-memory rollback store.
func NewRollbackStore() *RollbackStore {
	return &RollbackStore{
		data: make(map[string]*domain.RollbackRecord),
	}
}

// Insert adds a new rollback record. Returns ErrDuplicateKey if the ID exists.
func (s *RollbackStore) Insert(_ context.Context, record *domain.RollbackRecord) error {
	if record == nil || record.ID == "" || record.EntityID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[record.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[record.ID] = copyRollback(record)
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *RollbackStore) GetByID(_ context.Context, id string) (*domain.RollbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRollback(r), nil
}

// GetByEntity retrieves all rollback records for an entity,
// ordered by rolled_back_at DESC.
func (s *RollbackStore) GetByEntity(_ context.Context, entityID string) ([]*domain.RollbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RollbackRecord
	for _, r := range s.data {
		if r.EntityID == entityID {
			result = append(result, copyRollback(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].RolledBackAt.Equal(result[j].RolledBackAt) {
			return result[i].RolledBackAt.After(result[j].RolledBackAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetLatest retrieves the most recent rollback record for an entity.
func (s *RollbackStore) GetLatest(ctx context.Context, entityID string) (*domain.RollbackRecord, error) {
	records, err := s.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// MarkRestored sets restored_at on a rollback record.
func (s *RollbackStore) MarkRestored(_ context.Context, id string, at time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	restored := at
	r.RestoredAt = &restored
	return nil
}

// copyRollback deep-copies a record including its multiplier snapshot.
func copyRollback(r *domain.RollbackRecord) *domain.RollbackRecord {
	rCopy := *r
	if r.Snapshot != nil {
		rCopy.Snapshot = make([]domain.BidMultiplier, len(r.Snapshot))
		for i := range r.Snapshot {
			rCopy.Snapshot[i] = *copyMultiplier(&r.Snapshot[i])
		}
	}
	if r.RestoredAt != nil {
		t := *r.RestoredAt
		rCopy.RestoredAt = &t
	}
	return &rCopy
}

// Verify interface compliance at compile time.
var _ storage.RollbackStore = (*RollbackStore)(nil)
