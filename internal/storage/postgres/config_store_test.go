package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

func TestConfigStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewConfigStore(pool)
	ctx := context.Background()

	cfg := domain.DefaultConfig("camp-1")
	require.NoError(t, store.Upsert(ctx, cfg))

	got, err := store.Get(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeShadow, got.Mode)
	assert.Equal(t, 0.05, got.SignificanceLevel)
	assert.Equal(t, 30, got.MinSampleSize)

	// Upsert replaces the row.
	cfg.Mode = domain.ModeApply
	cfg.MaxDailyLoss = 25000
	require.NoError(t, store.Upsert(ctx, cfg))

	got, err = store.Get(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeApply, got.Mode)
	assert.Equal(t, 25000.0, got.MaxDailyLoss)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConfigStore_ListOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewConfigStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.DefaultConfig("camp-b")))
	require.NoError(t, store.Upsert(ctx, domain.DefaultConfig("camp-a")))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "camp-a", all[0].EntityID)
	assert.Equal(t, "camp-b", all[1].EntityID)
}
