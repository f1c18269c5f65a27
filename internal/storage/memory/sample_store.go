package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// SampleStore is an in-memory implementation of storage.SampleStore.
// The warehouse backends are read-only; this one additionally offers Add
// for seeding tests and the --memory server mode.
type SampleStore struct {
	mu   sync.RWMutex
	data []*domain.PerformanceSample
}

// NewSampleStore creates a new in-memory sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{}
}

// Add seeds samples into the store.
func (s *SampleStore) Add(samples ...*domain.PerformanceSample) error {
	for _, sample := range samples {
		if sample == nil || sample.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range samples {
		s.data = append(s.data, copySample(sample))
	}
	return nil
}

// GetByEntityWindow retrieves samples for an entity with Date within
// [from, to] (inclusive), ordered by date ASC, hour ASC.
func (s *SampleStore) GetByEntityWindow(_ context.Context, entityID string, from, to time.Time) ([]*domain.PerformanceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PerformanceSample
	for _, sample := range s.data {
		if sample.EntityID != entityID {
			continue
		}
		if sample.Date.Before(from) || sample.Date.After(to) {
			continue
		}
		result = append(result, copySample(sample))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Hour < result[j].Hour
	})

	return result, nil
}

// copySample deep-copies a sample including its derived ratio pointers.
func copySample(s *domain.PerformanceSample) *domain.PerformanceSample {
	sCopy := *s
	sCopy.CTR = copyFloat(s.CTR)
	sCopy.ConversionRate = copyFloat(s.ConversionRate)
	sCopy.CostOfSale = copyFloat(s.CostOfSale)
	sCopy.ReturnRatio = copyFloat(s.ReturnRatio)
	return &sCopy
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Verify interface compliance at compile time.
var _ storage.SampleStore = (*SampleStore)(nil)
