package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// MultiplierStore implements storage.MultiplierStore using PostgreSQL.
//
// A partial unique index on (entity_id, hour, weekday) WHERE active enforces
// the at-most-one-active-record-per-key invariant at the database level.
type MultiplierStore struct {
	pool *Pool
}

// NewMultiplierStore creates a new MultiplierStore.
func NewMultiplierStore(pool *Pool) *MultiplierStore {
	return &MultiplierStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MultiplierStore = (*MultiplierStore)(nil)

const multiplierColumns = `
	id, entity_id, hour, weekday, multiplier, confidence, classification,
	effective_from, effective_to, active
`

const insertMultiplierQuery = `
	INSERT INTO bid_multipliers (` + multiplierColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// InsertBatch adds new multiplier records. Returns ErrDuplicateKey if any ID exists.
func (s *MultiplierStore) InsertBatch(ctx context.Context, multipliers []*domain.BidMultiplier) error {
	if len(multipliers) == 0 {
		return nil
	}
	for _, m := range multipliers {
		if m == nil || m.ID == "" || m.EntityID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertMultipliers(ctx, tx, multipliers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetActive retrieves the active multiplier set for an entity,
// ordered by (weekday, hour) key ASC.
func (s *MultiplierStore) GetActive(ctx context.Context, entityID string) ([]*domain.BidMultiplier, error) {
	query := `
		SELECT ` + multiplierColumns + `
		FROM bid_multipliers
		WHERE entity_id = $1 AND active
		ORDER BY weekday ASC NULLS FIRST, hour ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("get active multipliers: %w", err)
	}
	defer rows.Close()

	return scanMultipliers(rows)
}

// GetByEntity retrieves the full multiplier history for an entity,
// ordered by effective_from ASC, key ASC.
func (s *MultiplierStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.BidMultiplier, error) {
	query := `
		SELECT ` + multiplierColumns + `
		FROM bid_multipliers
		WHERE entity_id = $1
		ORDER BY effective_from ASC, weekday ASC NULLS FIRST, hour ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("get multipliers by entity: %w", err)
	}
	defer rows.Close()

	return scanMultipliers(rows)
}

// ReplaceActive supersedes the entity's current active set and inserts the
// new one in a single transaction.
func (s *MultiplierStore) ReplaceActive(ctx context.Context, entityID string, multipliers []*domain.BidMultiplier, supersededAt time.Time) error {
	if entityID == "" {
		return storage.ErrInvalidInput
	}
	for _, m := range multipliers {
		if m == nil || m.ID == "" || m.EntityID != entityID {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	supersede := `
		UPDATE bid_multipliers
		SET active = false, effective_to = $2
		WHERE entity_id = $1 AND active
	`
	if _, err := tx.Exec(ctx, supersede, entityID, supersededAt); err != nil {
		return fmt.Errorf("supersede active multipliers: %w", err)
	}

	if err := insertMultipliers(ctx, tx, multipliers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertMultipliers(ctx context.Context, tx pgx.Tx, multipliers []*domain.BidMultiplier) error {
	for _, m := range multipliers {
		_, err := tx.Exec(ctx, insertMultiplierQuery,
			m.ID,
			m.EntityID,
			m.Hour,
			m.Weekday,
			m.Multiplier,
			string(m.Confidence),
			string(m.Classification),
			m.EffectiveFrom,
			m.EffectiveTo,
			m.Active,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert multiplier: %w", err)
		}
	}
	return nil
}

// scanMultipliers scans multiple rows into a slice of BidMultiplier.
func scanMultipliers(rows pgx.Rows) ([]*domain.BidMultiplier, error) {
	var multipliers []*domain.BidMultiplier

	for rows.Next() {
		var m domain.BidMultiplier
		var confidenceStr, classificationStr string

		err := rows.Scan(
			&m.ID,
			&m.EntityID,
			&m.Hour,
			&m.Weekday,
			&m.Multiplier,
			&confidenceStr,
			&classificationStr,
			&m.EffectiveFrom,
			&m.EffectiveTo,
			&m.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan multiplier row: %w", err)
		}

		m.Confidence = domain.ConfidenceLevel(confidenceStr)
		m.Classification = domain.Classification(classificationStr)
		multipliers = append(multipliers, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate multiplier rows: %w", err)
	}

	return multipliers, nil
}
