package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EntityConfig // keyed by entity_id
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		data: make(map[string]*domain.EntityConfig),
	}
}

// Upsert inserts or replaces the configuration for cfg.EntityID.
func (s *ConfigStore) Upsert(_ context.Context, cfg *domain.EntityConfig) error {
	if cfg == nil || cfg.EntityID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	cfgCopy := *cfg
	s.data[cfg.EntityID] = &cfgCopy
	return nil
}

// Get retrieves the configuration for an entity. Returns ErrNotFound if not exists.
func (s *ConfigStore) Get(_ context.Context, entityID string) (*domain.EntityConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.data[entityID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cfgCopy := *cfg
	return &cfgCopy, nil
}

// List retrieves all configurations, ordered by entity_id ASC.
func (s *ConfigStore) List(_ context.Context) ([]*domain.EntityConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EntityConfig, 0, len(s.data))
	for _, cfg := range s.data {
		cfgCopy := *cfg
		result = append(result, &cfgCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID < result[j].EntityID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ConfigStore = (*ConfigStore)(nil)
