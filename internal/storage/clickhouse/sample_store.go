package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// SampleStore implements storage.SampleStore using ClickHouse.
// The warehouse pipeline owns the table; this store only reads.
type SampleStore struct {
	conn *Conn
}

// NewSampleStore creates a new SampleStore.
func NewSampleStore(conn *Conn) *SampleStore {
	return &SampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleStore = (*SampleStore)(nil)

// GetByEntityWindow retrieves samples for an entity with Date within
// [from, to] (inclusive), ordered by date ASC, hour ASC.
//
// FINAL collapses ReplacingMergeTree duplicates so re-delivered warehouse
// rows never double-count.
func (s *SampleStore) GetByEntityWindow(ctx context.Context, entityID string, from, to time.Time) ([]*domain.PerformanceSample, error) {
	query := `
		SELECT entity_id, date, hour, weekday, impressions, clicks, conversions, spend, revenue
		FROM performance_samples FINAL
		WHERE entity_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, hour ASC
	`

	rows, err := s.conn.Query(ctx, query, entityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query samples by entity window: %w", err)
	}
	defer rows.Close()

	var samples []*domain.PerformanceSample
	for rows.Next() {
		var (
			entity                          string
			date                            time.Time
			hour, weekday                   uint8
			impressions, clicks, conversion uint64
			spend, revenue                  float64
		)
		if err := rows.Scan(&entity, &date, &hour, &weekday, &impressions, &clicks, &conversion, &spend, &revenue); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}

		samples = append(samples, domain.NewPerformanceSample(
			entity, date, int(hour), int(weekday),
			int64(impressions), int64(clicks), int64(conversion),
			spend, revenue,
		))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample rows: %w", err)
	}

	return samples, nil
}
