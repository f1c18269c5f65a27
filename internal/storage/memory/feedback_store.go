package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// FeedbackStore is an in-memory implementation of storage.FeedbackStore.
type FeedbackStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeedbackRecord // keyed by record ID
}

// NewFeedbackStore creates a new in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{
		data: make(map[string]*domain.FeedbackRecord),
	}
}

// Insert adds a new feedback record. Returns ErrDuplicateKey if the ID exists.
func (s *FeedbackStore) Insert(_ context.Context, record *domain.FeedbackRecord) error {
	if record == nil || record.ID == "" || record.EntityID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[record.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[record.ID] = copyFeedback(record)
	return nil
}

// InsertBatch adds multiple records. Fails the entire batch on any duplicate.
func (s *FeedbackStore) InsertBatch(_ context.Context, records []*domain.FeedbackRecord) error {
	for _, r := range records {
		if r == nil || r.ID == "" || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, exists := s.data[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[r.ID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.ID] = struct{}{}
	}

	for _, r := range records {
		s.data[r.ID] = copyFeedback(r)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *FeedbackStore) GetByID(_ context.Context, id string) (*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyFeedback(r), nil
}

// GetPending retrieves unevaluated records for an entity applied at or
// before cutoff, ordered by applied_at ASC.
func (s *FeedbackStore) GetPending(_ context.Context, entityID string, cutoff time.Time) ([]*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeedbackRecord
	for _, r := range s.data {
		if r.EntityID == entityID && !r.Evaluated() && !r.AppliedAt.After(cutoff) {
			result = append(result, copyFeedback(r))
		}
	}

	sortFeedback(result)
	return result, nil
}

// GetRecent retrieves records for an entity applied at or after since,
// evaluated or not, ordered by applied_at ASC.
func (s *FeedbackStore) GetRecent(_ context.Context, entityID string, since time.Time) ([]*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeedbackRecord
	for _, r := range s.data {
		if r.EntityID == entityID && !r.AppliedAt.Before(since) {
			result = append(result, copyFeedback(r))
		}
	}

	sortFeedback(result)
	return result, nil
}

// MarkEvaluated writes the one-time evaluation fields of the record.
func (s *FeedbackStore) MarkEvaluated(_ context.Context, record *domain.FeedbackRecord) error {
	if record == nil || record.ID == "" || !record.Evaluated() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.data[record.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if stored.Evaluated() {
		return storage.ErrAlreadyEvaluated
	}

	updated := copyFeedback(record)
	s.data[record.ID] = updated
	return nil
}

func sortFeedback(records []*domain.FeedbackRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].AppliedAt.Equal(records[j].AppliedAt) {
			return records[i].AppliedAt.Before(records[j].AppliedAt)
		}
		return records[i].ID < records[j].ID
	})
}

// copyFeedback deep-copies a record including its pointer fields.
func copyFeedback(r *domain.FeedbackRecord) *domain.FeedbackRecord {
	rCopy := *r
	if r.Weekday != nil {
		w := *r.Weekday
		rCopy.Weekday = &w
	}
	rCopy.Before = copyMetrics(r.Before)
	if r.After != nil {
		after := copyMetrics(*r.After)
		rCopy.After = &after
	}
	if r.EvaluatedAt != nil {
		t := *r.EvaluatedAt
		rCopy.EvaluatedAt = &t
	}
	if r.Success != nil {
		v := *r.Success
		rCopy.Success = &v
	}
	if r.SuccessScore != nil {
		v := *r.SuccessScore
		rCopy.SuccessScore = &v
	}
	return &rCopy
}

func copyMetrics(m domain.BeforeAfterMetrics) domain.BeforeAfterMetrics {
	mCopy := m
	if m.ConversionRate != nil {
		v := *m.ConversionRate
		mCopy.ConversionRate = &v
	}
	if m.ReturnRatio != nil {
		v := *m.ReturnRatio
		mCopy.ReturnRatio = &v
	}
	return mCopy
}

// Verify interface compliance at compile time.
var _ storage.FeedbackStore = (*FeedbackStore)(nil)
