package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// FeedbackStore implements storage.FeedbackStore using PostgreSQL.
type FeedbackStore struct {
	pool *Pool
}

// NewFeedbackStore creates a new FeedbackStore.
func NewFeedbackStore(pool *Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeedbackStore = (*FeedbackStore)(nil)

const feedbackColumns = `
	id, entity_id, hour, weekday, applied_multiplier, applied_at,
	before_conversion_rate, before_return_ratio, before_spend, before_revenue,
	evaluated_at,
	after_conversion_rate, after_return_ratio, after_spend, after_revenue,
	success, success_score
`

const insertFeedbackQuery = `
	INSERT INTO feedback_records (
		id, entity_id, hour, weekday, applied_multiplier, applied_at,
		before_conversion_rate, before_return_ratio, before_spend, before_revenue
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a new feedback record. Returns ErrDuplicateKey if the ID exists.
func (s *FeedbackStore) Insert(ctx context.Context, record *domain.FeedbackRecord) error {
	if record == nil || record.ID == "" || record.EntityID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertFeedbackQuery,
		record.ID,
		record.EntityID,
		record.Hour,
		record.Weekday,
		record.AppliedMultiplier,
		record.AppliedAt,
		record.Before.ConversionRate,
		record.Before.ReturnRatio,
		record.Before.Spend,
		record.Before.Revenue,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert feedback record: %w", err)
	}
	return nil
}

// InsertBatch adds multiple records. Fails the entire batch on any duplicate.
func (s *FeedbackStore) InsertBatch(ctx context.Context, records []*domain.FeedbackRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.ID == "" || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx, insertFeedbackQuery,
			r.ID,
			r.EntityID,
			r.Hour,
			r.Weekday,
			r.AppliedMultiplier,
			r.AppliedAt,
			r.Before.ConversionRate,
			r.Before.ReturnRatio,
			r.Before.Spend,
			r.Before.Revenue,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert feedback record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *FeedbackStore) GetByID(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_records
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	record, err := scanFeedback(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get feedback record by id: %w", err)
	}
	return record, nil
}

// GetPending retrieves unevaluated records for an entity applied at or
// before cutoff, ordered by applied_at ASC.
func (s *FeedbackStore) GetPending(ctx context.Context, entityID string, cutoff time.Time) ([]*domain.FeedbackRecord, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_records
		WHERE entity_id = $1 AND evaluated_at IS NULL AND applied_at <= $2
		ORDER BY applied_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get pending feedback records: %w", err)
	}
	defer rows.Close()

	return scanFeedbackRows(rows)
}

// GetRecent retrieves records for an entity applied at or after since,
// evaluated or not, ordered by applied_at ASC.
func (s *FeedbackStore) GetRecent(ctx context.Context, entityID string, since time.Time) ([]*domain.FeedbackRecord, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_records
		WHERE entity_id = $1 AND applied_at >= $2
		ORDER BY applied_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID, since)
	if err != nil {
		return nil, fmt.Errorf("get recent feedback records: %w", err)
	}
	defer rows.Close()

	return scanFeedbackRows(rows)
}

// MarkEvaluated writes the one-time evaluation fields of the record.
// The evaluated_at IS NULL guard makes the update idempotent against races:
// whichever writer lands second gets ErrAlreadyEvaluated.
func (s *FeedbackStore) MarkEvaluated(ctx context.Context, record *domain.FeedbackRecord) error {
	if record == nil || record.ID == "" || !record.Evaluated() || record.After == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE feedback_records
		SET evaluated_at = $2,
			after_conversion_rate = $3,
			after_return_ratio = $4,
			after_spend = $5,
			after_revenue = $6,
			success = $7,
			success_score = $8
		WHERE id = $1 AND evaluated_at IS NULL
	`

	tag, err := s.pool.Exec(ctx, query,
		record.ID,
		record.EvaluatedAt,
		record.After.ConversionRate,
		record.After.ReturnRatio,
		record.After.Spend,
		record.After.Revenue,
		record.Success,
		record.SuccessScore,
	)
	if err != nil {
		return fmt.Errorf("mark feedback evaluated: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row updated: either missing or already evaluated.
	if _, err := s.GetByID(ctx, record.ID); err != nil {
		return err
	}
	return storage.ErrAlreadyEvaluated
}

// scanFeedback scans a single row into a FeedbackRecord.
func scanFeedback(row pgx.Row) (*domain.FeedbackRecord, error) {
	var r domain.FeedbackRecord
	var afterConversion, afterReturn, afterSpend, afterRevenue *float64

	err := row.Scan(
		&r.ID,
		&r.EntityID,
		&r.Hour,
		&r.Weekday,
		&r.AppliedMultiplier,
		&r.AppliedAt,
		&r.Before.ConversionRate,
		&r.Before.ReturnRatio,
		&r.Before.Spend,
		&r.Before.Revenue,
		&r.EvaluatedAt,
		&afterConversion,
		&afterReturn,
		&afterSpend,
		&afterRevenue,
		&r.Success,
		&r.SuccessScore,
	)
	if err != nil {
		return nil, err
	}

	if r.EvaluatedAt != nil {
		after := domain.BeforeAfterMetrics{
			ConversionRate: afterConversion,
			ReturnRatio:    afterReturn,
		}
		if afterSpend != nil {
			after.Spend = *afterSpend
		}
		if afterRevenue != nil {
			after.Revenue = *afterRevenue
		}
		r.After = &after
	}
	return &r, nil
}

// scanFeedbackRows scans multiple rows into a slice of FeedbackRecord.
func scanFeedbackRows(rows pgx.Rows) ([]*domain.FeedbackRecord, error) {
	var records []*domain.FeedbackRecord

	for rows.Next() {
		r, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}

	return records, nil
}
