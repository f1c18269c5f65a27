package storage

import (
	"context"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

// ConfigStore provides access to entity_configs storage.
type ConfigStore interface {
	// Upsert inserts or replaces the configuration for cfg.EntityID.
	Upsert(ctx context.Context, cfg *domain.EntityConfig) error

	// Get retrieves the configuration for an entity. Returns ErrNotFound if not exists.
	Get(ctx context.Context, entityID string) (*domain.EntityConfig, error)

	// List retrieves all configurations, ordered by entity_id ASC.
	List(ctx context.Context) ([]*domain.EntityConfig, error)
}

// MultiplierStore provides access to bid_multipliers storage.
//
// Multiplier history is append-only: records are never deleted, only
// superseded by closing their effective window and clearing the active flag.
type MultiplierStore interface {
	// InsertBatch adds new multiplier records. Returns ErrDuplicateKey if any ID exists.
	InsertBatch(ctx context.Context, multipliers []*domain.BidMultiplier) error

	// GetActive retrieves the active multiplier set for an entity,
	// ordered by (weekday, hour) key ASC.
	GetActive(ctx context.Context, entityID string) ([]*domain.BidMultiplier, error)

	// GetByEntity retrieves the full multiplier history for an entity,
	// ordered by effective_from ASC, key ASC.
	GetByEntity(ctx context.Context, entityID string) ([]*domain.BidMultiplier, error)

	// ReplaceActive supersedes the entity's current active set and inserts
	// the new one atomically: existing actives get EffectiveTo=supersededAt
	// and Active=false, then the new records are inserted. At most one
	// active record per (entity, hour, weekday) key survives.
	ReplaceActive(ctx context.Context, entityID string, multipliers []*domain.BidMultiplier, supersededAt time.Time) error
}

// FeedbackStore provides access to feedback_records storage.
type FeedbackStore interface {
	// Insert adds a new feedback record. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, record *domain.FeedbackRecord) error

	// InsertBatch adds multiple records. Fails the entire batch on any duplicate.
	InsertBatch(ctx context.Context, records []*domain.FeedbackRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error)

	// GetPending retrieves unevaluated records for an entity applied at or
	// before cutoff, ordered by applied_at ASC.
	GetPending(ctx context.Context, entityID string, cutoff time.Time) ([]*domain.FeedbackRecord, error)

	// GetRecent retrieves records for an entity applied at or after since,
	// evaluated or not, ordered by applied_at ASC.
	GetRecent(ctx context.Context, entityID string, since time.Time) ([]*domain.FeedbackRecord, error)

	// MarkEvaluated writes the one-time evaluation fields of the record.
	// Returns ErrNotFound if the record does not exist and
	// ErrAlreadyEvaluated if it already carries an evaluation.
	MarkEvaluated(ctx context.Context, record *domain.FeedbackRecord) error
}

// RollbackStore provides access to rollback_records storage.
type RollbackStore interface {
	// Insert adds a new rollback record. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, record *domain.RollbackRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.RollbackRecord, error)

	// GetByEntity retrieves all rollback records for an entity,
	// ordered by rolled_back_at DESC.
	GetByEntity(ctx context.Context, entityID string) ([]*domain.RollbackRecord, error)

	// GetLatest retrieves the most recent rollback record for an entity.
	// Returns ErrNotFound if the entity was never rolled back.
	GetLatest(ctx context.Context, entityID string) (*domain.RollbackRecord, error)

	// MarkRestored sets restored_at on a rollback record. Returns ErrNotFound
	// if the record does not exist.
	MarkRestored(ctx context.Context, id string, at time.Time) error
}

// SampleStore reads hourly performance samples from the metrics warehouse.
type SampleStore interface {
	// GetByEntityWindow retrieves samples for an entity with Date within
	// [from, to] (inclusive), ordered by date ASC, hour ASC.
	GetByEntityWindow(ctx context.Context, entityID string, from, to time.Time) ([]*domain.PerformanceSample, error)
}

// DailySummaryStore reads daily spend/sales totals from the metrics warehouse.
type DailySummaryStore interface {
	// GetRecent retrieves up to days summaries for an entity,
	// ordered by date DESC (most recent first).
	GetRecent(ctx context.Context, entityID string, days int) ([]*domain.DailySummary, error)
}
