// Package history defines the read-only collaborator contracts the engine
// consumes: the user's post history and recent search queries. The engine
// never writes through these interfaces.
package history

import (
	"context"
	"sync"

	"github.com/writeway/personalization/internal/models"
)

// PostProvider exposes a user's past posts, newest first.
type PostProvider interface {
	ListPosts(ctx context.Context, userID string) ([]models.Post, error)
}

// SearchProvider exposes a user's recent free-text searches, newest first.
type SearchProvider interface {
	RecentQueries(ctx context.Context, userID string, limit int) ([]models.SearchQuery, error)
}

// MemoryPosts is a map-backed PostProvider for tests and the demo binary.
type MemoryPosts struct {
	mu    sync.RWMutex
	posts map[string][]models.Post
}

var _ PostProvider = (*MemoryPosts)(nil)

func NewMemoryPosts() *MemoryPosts {
	return &MemoryPosts{posts: make(map[string][]models.Post)}
}

// Add prepends a post so the newest-first ordering holds.
func (m *MemoryPosts) Add(userID string, post models.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[userID] = append([]models.Post{post}, m.posts[userID]...)
}

func (m *MemoryPosts) ListPosts(ctx context.Context, userID string) ([]models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := m.posts[userID]
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out, nil
}

// MemorySearches is a map-backed SearchProvider for tests and the demo binary.
type MemorySearches struct {
	mu      sync.RWMutex
	queries map[string][]models.SearchQuery
}

var _ SearchProvider = (*MemorySearches)(nil)

func NewMemorySearches() *MemorySearches {
	return &MemorySearches{queries: make(map[string][]models.SearchQuery)}
}

// Add prepends a query so the newest-first ordering holds.
func (m *MemorySearches) Add(userID string, query models.SearchQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[userID] = append([]models.SearchQuery{query}, m.queries[userID]...)
}

func (m *MemorySearches) RecentQueries(ctx context.Context, userID string, limit int) ([]models.SearchQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queries := m.queries[userID]
	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	out := make([]models.SearchQuery, len(queries))
	copy(out, queries)
	return out, nil
}
