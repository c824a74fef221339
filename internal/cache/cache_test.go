package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func TestCache_SetAndGet(t *testing.T) {
	c := New(NewMemoryStore(), "1.0")

	require.NoError(t, c.Set("key", payload{Value: "hello"}, time.Hour))

	var out payload
	require.True(t, c.Get("key", &out))
	assert.Equal(t, "hello", out.Value)
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	c := New(NewMemoryStore(), "1.0")

	var out payload
	assert.False(t, c.Get("missing", &out))
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := New(NewMemoryStore(), "1.0").WithClock(func() time.Time { return now })

	require.NoError(t, c.Set("key", payload{Value: "hello"}, 30*time.Minute))

	var out payload
	require.True(t, c.Get("key", &out))

	now = now.Add(31 * time.Minute)
	assert.False(t, c.Get("key", &out), "entry past its TTL must miss")
}

func TestCache_VersionMismatchIsMiss(t *testing.T) {
	store := NewMemoryStore()

	writer := New(store, "1.0")
	require.NoError(t, writer.Set("key", payload{Value: "stale"}, time.Hour))

	reader := New(store, "1.1")
	var out payload
	assert.False(t, reader.Get("key", &out), "entry written under version 1.0 must miss under 1.1")

	// The stale entry must also have been purged.
	data, err := store.Read("key")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCache_CorruptEntryIsPurgedMiss(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Write("key", []byte("not json")))

	c := New(store, "1.0")
	var out payload
	assert.False(t, c.Get("key", &out))

	data, err := store.Read("key")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCache_AgeMinutes(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := New(NewMemoryStore(), "1.0").WithClock(func() time.Time { return now })

	require.NoError(t, c.Set("key", payload{Value: "hello"}, time.Hour))

	now = now.Add(12 * time.Minute)
	age, ok := c.AgeMinutes("key")
	require.True(t, ok)
	assert.Equal(t, 12, age)

	_, ok = c.AgeMinutes("missing")
	assert.False(t, ok)
}

func TestCache_GetOrFill_CoalescesConcurrentFills(t *testing.T) {
	c := New(NewMemoryStore(), "1.0")

	var fills int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out payload
			err := c.GetOrFill("key", time.Hour, &out, func() (interface{}, error) {
				atomic.AddInt32(&fills, 1)
				return payload{Value: "filled"}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "filled", out.Value)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fills), "concurrent callers must coalesce into one fill")
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New(NewMemoryStore(), "1.0")

	require.NoError(t, c.Set("trends:US:en:1", payload{Value: "a"}, time.Hour))
	require.NoError(t, c.Set("trends:US:en:2", payload{Value: "b"}, time.Hour))
	require.NoError(t, c.Set("style:user1", payload{Value: "c"}, time.Hour))

	c.InvalidatePrefix("trends:")

	var out payload
	assert.False(t, c.Get("trends:US:en:1", &out))
	assert.False(t, c.Get("trends:US:en:2", &out))
	assert.True(t, c.Get("style:user1", &out))
}
