package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestSampleStore_GetByEntityWindow(t *testing.T) {
	store := NewSampleStore()
	ctx := context.Background()

	require.NoError(t, store.Add(
		domain.NewPerformanceSample("camp-1", day(5), 10, 3, 1000, 40, 2, 80, 200),
		domain.NewPerformanceSample("camp-1", day(1), 9, 6, 1000, 40, 2, 80, 200),
		domain.NewPerformanceSample("camp-1", day(1), 8, 6, 1000, 40, 2, 80, 200),
		domain.NewPerformanceSample("camp-2", day(2), 8, 0, 1000, 40, 2, 80, 200),
		domain.NewPerformanceSample("camp-1", day(9), 8, 0, 1000, 40, 2, 80, 200),
	))

	got, err := store.GetByEntityWindow(ctx, "camp-1", day(1), day(5))
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Ordered by date then hour; window bounds are inclusive.
	assert.Equal(t, 8, got[0].Hour)
	assert.Equal(t, 9, got[1].Hour)
	assert.Equal(t, day(5), got[2].Date)
}

func TestSampleStore_ReturnsCopies(t *testing.T) {
	store := NewSampleStore()
	ctx := context.Background()

	require.NoError(t, store.Add(
		domain.NewPerformanceSample("camp-1", day(1), 8, 6, 1000, 40, 2, 80, 200),
	))

	got, err := store.GetByEntityWindow(ctx, "camp-1", day(1), day(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	*got[0].ConversionRate = 99

	again, err := store.GetByEntityWindow(ctx, "camp-1", day(1), day(1))
	require.NoError(t, err)
	assert.Equal(t, 0.05, *again[0].ConversionRate)
}

func TestDailySummaryStore_GetRecent(t *testing.T) {
	store := NewDailySummaryStore()
	ctx := context.Background()

	require.NoError(t, store.Add(
		&domain.DailySummary{EntityID: "camp-1", Date: day(1), Spend: 100, Sales: 300},
		&domain.DailySummary{EntityID: "camp-1", Date: day(3), Spend: 120, Sales: 310},
		&domain.DailySummary{EntityID: "camp-1", Date: day(2), Spend: 110, Sales: 305},
		&domain.DailySummary{EntityID: "camp-2", Date: day(3), Spend: 500, Sales: 100},
	))

	got, err := store.GetRecent(ctx, "camp-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Most recent first, capped at the requested count.
	assert.Equal(t, day(3), got[0].Date)
	assert.Equal(t, day(2), got[1].Date)

	all, err := store.GetRecent(ctx, "camp-1", 30)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
