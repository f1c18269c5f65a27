package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

const configColumns = `
	entity_id, mode, enabled,
	min_multiplier, max_multiplier, significance_level, min_sample_size,
	analysis_window_days, max_daily_loss, rollback_threshold,
	max_consecutive_bad_days, max_step_delta
`

// Upsert inserts or replaces the configuration for cfg.EntityID.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *domain.EntityConfig) error {
	if cfg == nil || cfg.EntityID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO entity_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (entity_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			enabled = EXCLUDED.enabled,
			min_multiplier = EXCLUDED.min_multiplier,
			max_multiplier = EXCLUDED.max_multiplier,
			significance_level = EXCLUDED.significance_level,
			min_sample_size = EXCLUDED.min_sample_size,
			analysis_window_days = EXCLUDED.analysis_window_days,
			max_daily_loss = EXCLUDED.max_daily_loss,
			rollback_threshold = EXCLUDED.rollback_threshold,
			max_consecutive_bad_days = EXCLUDED.max_consecutive_bad_days,
			max_step_delta = EXCLUDED.max_step_delta,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		cfg.EntityID,
		string(cfg.Mode),
		cfg.Enabled,
		cfg.MinMultiplier,
		cfg.MaxMultiplier,
		cfg.SignificanceLevel,
		cfg.MinSampleSize,
		cfg.AnalysisWindowDays,
		cfg.MaxDailyLoss,
		cfg.RollbackThreshold,
		cfg.MaxConsecutiveBadDays,
		cfg.MaxStepDelta,
	)
	if err != nil {
		return fmt.Errorf("upsert entity config: %w", err)
	}
	return nil
}

// Get retrieves the configuration for an entity. Returns ErrNotFound if not exists.
func (s *ConfigStore) Get(ctx context.Context, entityID string) (*domain.EntityConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM entity_configs
		WHERE entity_id = $1
	`

	row := s.pool.QueryRow(ctx, query, entityID)
	cfg, err := scanConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity config: %w", err)
	}
	return cfg, nil
}

// List retrieves all configurations, ordered by entity_id ASC.
func (s *ConfigStore) List(ctx context.Context) ([]*domain.EntityConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM entity_configs
		ORDER BY entity_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entity configs: %w", err)
	}
	defer rows.Close()

	var configs []*domain.EntityConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config rows: %w", err)
	}

	return configs, nil
}

// scanConfig scans a single row into an EntityConfig.
func scanConfig(row pgx.Row) (*domain.EntityConfig, error) {
	var cfg domain.EntityConfig
	var modeStr string

	err := row.Scan(
		&cfg.EntityID,
		&modeStr,
		&cfg.Enabled,
		&cfg.MinMultiplier,
		&cfg.MaxMultiplier,
		&cfg.SignificanceLevel,
		&cfg.MinSampleSize,
		&cfg.AnalysisWindowDays,
		&cfg.MaxDailyLoss,
		&cfg.RollbackThreshold,
		&cfg.MaxConsecutiveBadDays,
		&cfg.MaxStepDelta,
	)
	if err != nil {
		return nil, err
	}

	cfg.Mode = domain.Mode(modeStr)
	return &cfg, nil
}
