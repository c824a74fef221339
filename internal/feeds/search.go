package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/models"
	"github.com/writeway/personalization/internal/presets"
)

// SearchSource fetches rising search-engine queries from a configured
// suggestions endpoint, seeded with the current season's keywords so the
// returned queries stay on-topic for content writing.
type SearchSource struct {
	endpoint string
	catalog  *presets.Catalog
	nowFn    func() time.Time
	client   *resty.Client
}

var _ Source = (*SearchSource)(nil)

// NewSearchSource creates a search-suggestions client. An empty endpoint
// disables the source.
func NewSearchSource(endpoint string, catalog *presets.Catalog, timeout time.Duration, now func() time.Time) *SearchSource {
	return &SearchSource{
		endpoint: endpoint,
		catalog:  catalog,
		nowFn:    now,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "writeway-personalization/1.0"),
	}
}

func (s *SearchSource) Name() string {
	return "search"
}

func (s *SearchSource) Kind() models.TrendSource {
	return models.SourceSearch
}

func (s *SearchSource) Enabled() bool {
	return s.endpoint != ""
}

func (s *SearchSource) Fetch(ctx context.Context, locale models.Locale) ([]models.FeedItem, error) {
	if !s.Enabled() {
		logrus.Debug("Search source disabled - no endpoint configured")
		return nil, nil
	}

	seeds := s.catalog.SeasonalSet(s.nowFn()).Keywords

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lang":  locale.LanguageCode,
			"seeds": strings.Join(seeds, ","),
		}).
		Get(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("%w: search fetch: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: search endpoint returned status %d", ErrSourceUnavailable, resp.StatusCode())
	}

	var suggestions []struct {
		Query  string `json:"query"`
		Rising int    `json:"rising"`
	}
	if err := json.Unmarshal(resp.Body(), &suggestions); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", ErrSourceUnavailable, err)
	}

	items := make([]models.FeedItem, 0, len(suggestions))
	for _, sg := range suggestions {
		items = append(items, models.FeedItem{
			Title:     sg.Query,
			GrowthPct: sg.Rising,
		})
	}

	return items, nil
}
