package storage

import (
	"context"
	"sync"

	"github.com/writeway/personalization/internal/models"
)

// MemoryStore is a map-backed Store for tests and single-session use.
type MemoryStore struct {
	mu         sync.RWMutex
	affinities map[string]map[string]models.HashtagAffinity

	// FailWrites makes SaveAffinities return ErrPersistence, for testing the
	// propagation path.
	FailWrites bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{affinities: make(map[string]map[string]models.HashtagAffinity)}
}

func (m *MemoryStore) LoadAffinities(ctx context.Context, userID string) (map[string]models.HashtagAffinity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.HashtagAffinity, len(m.affinities[userID]))
	for tag, aff := range m.affinities[userID] {
		out[tag] = aff
	}
	return out, nil
}

func (m *MemoryStore) SaveAffinities(ctx context.Context, userID string, affinities map[string]models.HashtagAffinity) error {
	if m.FailWrites {
		return ErrPersistence
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make(map[string]models.HashtagAffinity, len(affinities))
	for tag, aff := range affinities {
		stored[tag] = aff
	}
	m.affinities[userID] = stored
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.affinities, userID)
	return nil
}
