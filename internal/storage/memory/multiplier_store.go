package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// MultiplierStore is an in-memory implementation of storage.MultiplierStore.
type MultiplierStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BidMultiplier // keyed by record ID
}

// NewMultiplierStore creates a new in-memory multiplier store.
func NewMultiplierStore() *MultiplierStore {
	return &MultiplierStore{
		data: make(map[string]*domain.BidMultiplier),
	}
}

// InsertBatch adds new multiplier records. Returns ErrDuplicateKey if any ID exists.
func (s *MultiplierStore) InsertBatch(_ context.Context, multipliers []*domain.BidMultiplier) error {
	for _, m := range multipliers {
		if m == nil || m.ID == "" || m.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(multipliers))
	for _, m := range multipliers {
		if _, exists := s.data[m.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[m.ID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[m.ID] = struct{}{}
	}

	for _, m := range multipliers {
		mCopy := copyMultiplier(m)
		s.data[m.ID] = mCopy
	}
	return nil
}

// GetActive retrieves the active multiplier set for an entity,
// ordered by (weekday, hour) key ASC.
func (s *MultiplierStore) GetActive(_ context.Context, entityID string) ([]*domain.BidMultiplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BidMultiplier
	for _, m := range s.data {
		if m.EntityID == entityID && m.Active {
			result = append(result, copyMultiplier(m))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key() < result[j].Key()
	})

	return result, nil
}

// GetByEntity retrieves the full multiplier history for an entity,
// ordered by effective_from ASC, key ASC.
func (s *MultiplierStore) GetByEntity(_ context.Context, entityID string) ([]*domain.BidMultiplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BidMultiplier
	for _, m := range s.data {
		if m.EntityID == entityID {
			result = append(result, copyMultiplier(m))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EffectiveFrom.Equal(result[j].EffectiveFrom) {
			return result[i].EffectiveFrom.Before(result[j].EffectiveFrom)
		}
		return result[i].Key() < result[j].Key()
	})

	return result, nil
}

// ReplaceActive supersedes the entity's current active set and inserts the
// new one. The two steps happen under one lock, matching the transactional
// semantics of the postgres backend.
func (s *MultiplierStore) ReplaceActive(_ context.Context, entityID string, multipliers []*domain.BidMultiplier, supersededAt time.Time) error {
	if entityID == "" {
		return storage.ErrInvalidInput
	}
	for _, m := range multipliers {
		if m == nil || m.ID == "" || m.EntityID != entityID {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(multipliers))
	for _, m := range multipliers {
		if _, exists := s.data[m.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[m.ID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[m.ID] = struct{}{}
	}

	for _, m := range s.data {
		if m.EntityID == entityID && m.Active {
			m.Active = false
			at := supersededAt
			m.EffectiveTo = &at
		}
	}

	for _, m := range multipliers {
		s.data[m.ID] = copyMultiplier(m)
	}
	return nil
}

// copyMultiplier deep-copies a record including its pointer fields.
func copyMultiplier(m *domain.BidMultiplier) *domain.BidMultiplier {
	mCopy := *m
	if m.Weekday != nil {
		w := *m.Weekday
		mCopy.Weekday = &w
	}
	if m.EffectiveTo != nil {
		t := *m.EffectiveTo
		mCopy.EffectiveTo = &t
	}
	return &mCopy
}

// Verify interface compliance at compile time.
var _ storage.MultiplierStore = (*MultiplierStore)(nil)
