package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// DailySummaryStore is an in-memory implementation of storage.DailySummaryStore.
// Like SampleStore, it offers Add for seeding tests and the --memory mode.
type DailySummaryStore struct {
	mu   sync.RWMutex
	data []*domain.DailySummary
}

// NewDailySummaryStore creates a new in-memory daily summary store.
func NewDailySummaryStore() *DailySummaryStore {
	return &DailySummaryStore{}
}

// Add seeds summaries into the store.
func (s *DailySummaryStore) Add(summaries ...*domain.DailySummary) error {
	for _, summary := range summaries {
		if summary == nil || summary.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, summary := range summaries {
		summaryCopy := *summary
		s.data = append(s.data, &summaryCopy)
	}
	return nil
}

// GetRecent retrieves up to days summaries for an entity,
// ordered by date DESC (most recent first).
func (s *DailySummaryStore) GetRecent(_ context.Context, entityID string, days int) ([]*domain.DailySummary, error) {
	if days < 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailySummary
	for _, summary := range s.data {
		if summary.EntityID == entityID {
			summaryCopy := *summary
			result = append(result, &summaryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})

	if len(result) > days {
		result = result[:days]
	}

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DailySummaryStore = (*DailySummaryStore)(nil)
