package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// RollbackStore implements storage.RollbackStore using PostgreSQL.
// The multiplier snapshot is stored as a JSONB document: it is an immutable
// audit artifact read back as a whole, never queried by field.
type RollbackStore struct {
	pool *Pool
}

// NewRollbackStore creates a new RollbackStore.
func NewRollbackStore(pool *Pool) *RollbackStore {
	return &RollbackStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RollbackStore = (*RollbackStore)(nil)

const rollbackColumns = `
	id, entity_id, reason, snapshot, rolled_back_at, restored_at
`

// Insert adds a new rollback record. Returns ErrDuplicateKey if the ID exists.
func (s *RollbackStore) Insert(ctx context.Context, record *domain.RollbackRecord) error {
	if record == nil || record.ID == "" || record.EntityID == "" {
		return storage.ErrInvalidInput
	}

	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal rollback snapshot: %w", err)
	}

	query := `
		INSERT INTO rollback_records (` + rollbackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		record.ID,
		record.EntityID,
		record.Reason,
		snapshot,
		record.RolledBackAt,
		record.RestoredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rollback record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *RollbackStore) GetByID(ctx context.Context, id string) (*domain.RollbackRecord, error) {
	query := `
		SELECT ` + rollbackColumns + `
		FROM rollback_records
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	record, err := scanRollback(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rollback record by id: %w", err)
	}
	return record, nil
}

// GetByEntity retrieves all rollback records for an entity,
// ordered by rolled_back_at DESC.
func (s *RollbackStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.RollbackRecord, error) {
	query := `
		SELECT ` + rollbackColumns + `
		FROM rollback_records
		WHERE entity_id = $1
		ORDER BY rolled_back_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("get rollback records by entity: %w", err)
	}
	defer rows.Close()

	var records []*domain.RollbackRecord
	for rows.Next() {
		r, err := scanRollback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rollback row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollback rows: %w", err)
	}

	return records, nil
}

// GetLatest retrieves the most recent rollback record for an entity.
func (s *RollbackStore) GetLatest(ctx context.Context, entityID string) (*domain.RollbackRecord, error) {
	query := `
		SELECT ` + rollbackColumns + `
		FROM rollback_records
		WHERE entity_id = $1
		ORDER BY rolled_back_at DESC, id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, entityID)
	record, err := scanRollback(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest rollback record: %w", err)
	}
	return record, nil
}

// MarkRestored sets restored_at on a rollback record.
func (s *RollbackStore) MarkRestored(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE rollback_records
		SET restored_at = $2
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark rollback restored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanRollback scans a single row into a RollbackRecord.
func scanRollback(row pgx.Row) (*domain.RollbackRecord, error) {
	var r domain.RollbackRecord
	var snapshot []byte

	err := row.Scan(
		&r.ID,
		&r.EntityID,
		&r.Reason,
		&snapshot,
		&r.RolledBackAt,
		&r.RestoredAt,
	)
	if err != nil {
		return nil, err
	}

	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &r.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal rollback snapshot: %w", err)
		}
	}
	return &r, nil
}
