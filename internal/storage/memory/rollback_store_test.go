package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

func testRollback(id string, at time.Time) *domain.RollbackRecord {
	return &domain.RollbackRecord{
		ID:       id,
		EntityID: "camp-1",
		Reason:   "daily loss ceiling exceeded",
		Snapshot: []domain.BidMultiplier{
			{ID: "m-1", EntityID: "camp-1", Hour: 1, Multiplier: 1.2},
		},
		RolledBackAt: at,
	}
}

func TestRollbackStore_InsertAndGetLatest(t *testing.T) {
	store := NewRollbackStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testRollback("rb-1", at)))
	require.NoError(t, store.Insert(ctx, testRollback("rb-2", at.Add(24*time.Hour))))
	assert.ErrorIs(t, store.Insert(ctx, testRollback("rb-1", at)), storage.ErrDuplicateKey)

	latest, err := store.GetLatest(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "rb-2", latest.ID)

	_, err = store.GetLatest(ctx, "camp-other")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := store.GetByEntity(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rb-2", all[0].ID)
}

func TestRollbackStore_MarkRestored(t *testing.T) {
	store := NewRollbackStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testRollback("rb-1", at)))

	restoredAt := at.Add(48 * time.Hour)
	require.NoError(t, store.MarkRestored(ctx, "rb-1", restoredAt))

	got, err := store.GetByID(ctx, "rb-1")
	require.NoError(t, err)
	require.NotNil(t, got.RestoredAt)
	assert.Equal(t, restoredAt, *got.RestoredAt)

	assert.ErrorIs(t, store.MarkRestored(ctx, "missing", restoredAt), storage.ErrNotFound)
}

func TestRollbackStore_SnapshotIsCopied(t *testing.T) {
	store := NewRollbackStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	original := testRollback("rb-1", at)
	require.NoError(t, store.Insert(ctx, original))

	original.Snapshot[0].Multiplier = 99

	got, err := store.GetByID(ctx, "rb-1")
	require.NoError(t, err)
	assert.Equal(t, 1.2, got.Snapshot[0].Multiplier)

	got.Snapshot[0].Multiplier = 0
	again, err := store.GetByID(ctx, "rb-1")
	require.NoError(t, err)
	assert.Equal(t, 1.2, again.Snapshot[0].Multiplier)
}
