package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// DailySummaryStore implements storage.DailySummaryStore using ClickHouse.
type DailySummaryStore struct {
	conn *Conn
}

// NewDailySummaryStore creates a new DailySummaryStore.
func NewDailySummaryStore(conn *Conn) *DailySummaryStore {
	return &DailySummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailySummaryStore = (*DailySummaryStore)(nil)

// GetRecent retrieves up to days summaries for an entity,
// ordered by date DESC (most recent first).
func (s *DailySummaryStore) GetRecent(ctx context.Context, entityID string, days int) ([]*domain.DailySummary, error) {
	if days < 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT entity_id, date, spend, sales, conversions
		FROM daily_summaries FINAL
		WHERE entity_id = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, entityID, uint64(days))
	if err != nil {
		return nil, fmt.Errorf("query recent daily summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*domain.DailySummary
	for rows.Next() {
		var (
			entity      string
			date        time.Time
			spend       float64
			sales       float64
			conversions uint64
		)
		if err := rows.Scan(&entity, &date, &spend, &sales, &conversions); err != nil {
			return nil, fmt.Errorf("scan daily summary row: %w", err)
		}

		summaries = append(summaries, &domain.DailySummary{
			EntityID:    entity,
			Date:        date,
			Spend:       spend,
			Sales:       sales,
			Conversions: int64(conversions),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily summary rows: %w", err)
	}

	return summaries, nil
}
