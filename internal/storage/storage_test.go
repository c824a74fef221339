package storage

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writeway/personalization/internal/models"
)

func sampleAffinities() map[string]models.HashtagAffinity {
	return map[string]models.HashtagAffinity{
		"coffee": {
			Tag:        "coffee",
			UsageCount: 3,
			LastUsedAt: time.Date(2025, time.July, 10, 10, 0, 0, 0, time.UTC),
			Category:   "food",
		},
		"travel": {
			Tag:        "travel",
			UsageCount: 1,
			LastUsedAt: time.Date(2025, time.July, 1, 8, 0, 0, 0, time.UTC),
			Category:   "travel",
		},
	}
}

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Unknown user loads as empty, not as an error.
	loaded, err := store.LoadAffinities(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, store.SaveAffinities(ctx, "user1", sampleAffinities()))

	loaded, err = store.LoadAffinities(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, sampleAffinities(), loaded)

	// Other users are unaffected.
	other, err := store.LoadAffinities(ctx, "user2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Reset(ctx, "user1"))
	loaded, err = store.LoadAffinities(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	testStoreRoundTrip(t, NewBadgerStore(db))
}

func TestMemoryStore_SaveIsolatesCallerMap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	affinities := sampleAffinities()
	require.NoError(t, store.SaveAffinities(ctx, "user1", affinities))

	// Mutating the caller's map after save must not leak into the store.
	affinities["coffee"] = models.HashtagAffinity{Tag: "coffee", UsageCount: 99}

	loaded, err := store.LoadAffinities(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded["coffee"].UsageCount)
}

func TestMemoryStore_FailWrites(t *testing.T) {
	store := NewMemoryStore()
	store.FailWrites = true

	err := store.SaveAffinities(context.Background(), "user1", sampleAffinities())
	assert.ErrorIs(t, err, ErrPersistence)
}
