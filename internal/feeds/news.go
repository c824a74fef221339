package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/models"
)

// NewsSource fetches current headlines from a configured news endpoint.
// The endpoint returns a JSON array of {title, growth_pct, url}.
type NewsSource struct {
	endpoint string
	client   *resty.Client
}

var _ Source = (*NewsSource)(nil)

// NewNewsSource creates a news feed client. An empty endpoint disables the
// source.
func NewNewsSource(endpoint string, timeout time.Duration) *NewsSource {
	return &NewsSource{
		endpoint: endpoint,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "writeway-personalization/1.0"),
	}
}

func (n *NewsSource) Name() string {
	return "news"
}

func (n *NewsSource) Kind() models.TrendSource {
	return models.SourceNews
}

func (n *NewsSource) Enabled() bool {
	return n.endpoint != ""
}

func (n *NewsSource) Fetch(ctx context.Context, locale models.Locale) ([]models.FeedItem, error) {
	if !n.Enabled() {
		logrus.Debug("News source disabled - no endpoint configured")
		return nil, nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lang":   locale.LanguageCode,
			"region": locale.RegionCode,
		}).
		Get(n.endpoint)

	if err != nil {
		return nil, fmt.Errorf("%w: news fetch: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: news endpoint returned status %d", ErrSourceUnavailable, resp.StatusCode())
	}

	var items []models.FeedItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("%w: decoding news response: %v", ErrSourceUnavailable, err)
	}

	return items, nil
}
