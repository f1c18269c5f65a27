package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

func TestConfigStore_UpsertAndGet(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	cfg := domain.DefaultConfig("camp-1")
	require.NoError(t, store.Upsert(ctx, cfg))

	got, err := store.Get(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeShadow, got.Mode)

	// Upsert replaces.
	cfg.Mode = domain.ModeApply
	require.NoError(t, store.Upsert(ctx, cfg))
	got, err = store.Get(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeApply, got.Mode)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Upsert(ctx, &domain.EntityConfig{}), storage.ErrInvalidInput)
}

func TestConfigStore_ListOrdered(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.DefaultConfig("camp-b")))
	require.NoError(t, store.Upsert(ctx, domain.DefaultConfig("camp-a")))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "camp-a", all[0].EntityID)
	assert.Equal(t, "camp-b", all[1].EntityID)
}

func TestConfigStore_ReturnsCopies(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.DefaultConfig("camp-1")))

	got, err := store.Get(ctx, "camp-1")
	require.NoError(t, err)
	got.MaxMultiplier = 99

	again, err := store.Get(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, again.MaxMultiplier)
}
