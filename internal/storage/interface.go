package storage

import (
	"context"
	"errors"

	"github.com/writeway/personalization/internal/models"
)

// ErrPersistence wraps any affinity store read or write failure. Unlike feed
// failures, these surface to the caller: a lost affinity write silently skews
// every later recommendation.
var ErrPersistence = errors.New("affinity persistence failure")

// Store is the contract for persisting per-user hashtag affinities.
// LoadAffinities on an unknown user returns an empty map, not an error.
type Store interface {
	LoadAffinities(ctx context.Context, userID string) (map[string]models.HashtagAffinity, error)
	SaveAffinities(ctx context.Context, userID string, affinities map[string]models.HashtagAffinity) error
	// Reset removes all stored affinities for the user (the "reset
	// personalization" action).
	Reset(ctx context.Context, userID string) error
}
