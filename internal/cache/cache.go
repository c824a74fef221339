package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// SchemaVersion tags every cache entry. Bump it whenever the shape of a cached
// payload or the scoring logic changes; entries written under another version
// are treated as misses and purged on read.
const SchemaVersion = "1.1"

// ErrCorrupt marks a stored payload that failed to deserialize. Callers never
// see it directly; the entry is purged and the read reported as a miss.
var ErrCorrupt = errors.New("cache entry corrupt")

// entry is the stored envelope around a cached payload.
type entry struct {
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	WrittenAt  time.Time       `json:"written_at"`
	Version    string          `json:"version"`
	TTLSeconds int64           `json:"ttl_seconds"`
}

// Store is the backend a Cache persists entries to. Implementations must be
// safe for concurrent use. Read returns (nil, nil) for a missing key.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	DeletePrefix(prefix string) error
}

// Cache is a TTL cache with versioned invalidation. Backend I/O errors are
// non-fatal: reads degrade to misses and writes are logged and dropped, so a
// broken backend only costs recomputation, never correctness.
type Cache struct {
	store   Store
	version string
	nowFn   func() time.Time

	mu    sync.Mutex
	fills map[string]*sync.Mutex
}

// New creates a cache over the given store, tagging entries with version.
func New(store Store, version string) *Cache {
	return &Cache{
		store:   store,
		version: version,
		nowFn:   time.Now,
		fills:   make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the cache's time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.nowFn = now
	return c
}

// Get loads the entry for key into out. It returns false on any kind of miss:
// absent key, expired TTL, version mismatch, corrupt payload, or backend error.
func (c *Cache) Get(key string, out interface{}) bool {
	e, ok := c.read(key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(e.Payload, out); err != nil {
		logrus.Warnf("Purging corrupt cache entry %s: %v", key, fmt.Errorf("%w: %v", ErrCorrupt, err))
		c.Invalidate(key)
		return false
	}

	return true
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache payload for %s: %w", key, err)
	}

	e := entry{
		Key:        key,
		Payload:    payload,
		WrittenAt:  c.nowFn(),
		Version:    c.version,
		TTLSeconds: int64(ttl.Seconds()),
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling cache entry for %s: %w", key, err)
	}

	if err := c.store.Write(key, data); err != nil {
		// Non-fatal: the next read recomputes.
		logrus.Errorf("Cache write failed for %s: %v", key, err)
	}
	return nil
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	if err := c.store.Delete(key); err != nil {
		logrus.Debugf("Cache delete failed for %s: %v", key, err)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	if err := c.store.DeletePrefix(prefix); err != nil {
		logrus.Debugf("Cache prefix delete failed for %s: %v", prefix, err)
	}
}

// AgeMinutes reports how many minutes ago the entry for key was written.
// The second return is false when the key would miss.
func (c *Cache) AgeMinutes(key string) (int, bool) {
	e, ok := c.read(key)
	if !ok {
		return 0, false
	}
	return int(c.nowFn().Sub(e.WrittenAt).Minutes()), true
}

// GetOrFill returns the cached value for key, or runs fill once and caches the
// result. Concurrent callers for the same missing key coalesce into a single
// fill; a mutex per key is enough at the request rates this engine sees.
// Fill errors propagate unchanged and cache nothing.
func (c *Cache) GetOrFill(key string, ttl time.Duration, out interface{}, fill func() (interface{}, error)) error {
	mu := c.keyMutex(key)
	mu.Lock()
	defer mu.Unlock()

	if c.Get(key, out) {
		return nil
	}

	value, err := fill()
	if err != nil {
		return err
	}

	if err := c.Set(key, value, ttl); err != nil {
		logrus.Errorf("Caching filled value for %s failed: %v", key, err)
	}

	// Round-trip through the codec so out sees the same shape a cache hit
	// would produce.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling filled value for %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding filled value for %s: %w", key, err)
	}
	return nil
}

func (c *Cache) keyMutex(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	mu, ok := c.fills[key]
	if !ok {
		mu = &sync.Mutex{}
		c.fills[key] = mu
	}
	return mu
}

// read loads and validates the envelope for key. Any failure is a miss; stale
// or foreign-version entries are purged so they cannot shadow future writes.
func (c *Cache) read(key string) (entry, bool) {
	data, err := c.store.Read(key)
	if err != nil {
		logrus.Debugf("Cache read failed for %s, treating as miss: %v", key, err)
		return entry{}, false
	}
	if data == nil {
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		logrus.Warnf("Purging corrupt cache entry %s: %v", key, fmt.Errorf("%w: %v", ErrCorrupt, err))
		c.Invalidate(key)
		return entry{}, false
	}

	if e.Version != c.version {
		logrus.Debugf("Cache entry %s written under version %s, current %s; purging", key, e.Version, c.version)
		c.Invalidate(key)
		return entry{}, false
	}

	if e.TTLSeconds > 0 {
		age := c.nowFn().Sub(e.WrittenAt)
		if age > time.Duration(e.TTLSeconds)*time.Second {
			c.Invalidate(key)
			return entry{}, false
		}
	}

	return e, true
}
