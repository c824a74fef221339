package feeds

import (
	"context"
	"errors"

	"github.com/writeway/personalization/internal/models"
)

// ErrSourceUnavailable wraps any feed failure: transport error, non-200
// status, or malformed body. It is distinguishable from an empty-but-
// successful response, which is (nil slice, nil error).
var ErrSourceUnavailable = errors.New("feed source unavailable")

// Source is the contract every external feed implements.
type Source interface {
	Name() string
	Kind() models.TrendSource
	Enabled() bool
	Fetch(ctx context.Context, locale models.Locale) ([]models.FeedItem, error)
}
