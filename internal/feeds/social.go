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

// SocialSource fetches trending post titles from a configured social endpoint.
type SocialSource struct {
	endpoint string
	client   *resty.Client
}

var _ Source = (*SocialSource)(nil)

// NewSocialSource creates a social feed client. An empty endpoint disables
// the source.
func NewSocialSource(endpoint string, timeout time.Duration) *SocialSource {
	return &SocialSource{
		endpoint: endpoint,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "writeway-personalization/1.0"),
	}
}

func (s *SocialSource) Name() string {
	return "social"
}

func (s *SocialSource) Kind() models.TrendSource {
	return models.SourceSocial
}

func (s *SocialSource) Enabled() bool {
	return s.endpoint != ""
}

func (s *SocialSource) Fetch(ctx context.Context, locale models.Locale) ([]models.FeedItem, error) {
	if !s.Enabled() {
		logrus.Debug("Social source disabled - no endpoint configured")
		return nil, nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lang":   locale.LanguageCode,
			"region": locale.RegionCode,
		}).
		Get(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("%w: social fetch: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: social endpoint returned status %d", ErrSourceUnavailable, resp.StatusCode())
	}

	var titles []struct {
		Title string `json:"title"`
		Likes int    `json:"likes"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body(), &titles); err != nil {
		return nil, fmt.Errorf("%w: decoding social response: %v", ErrSourceUnavailable, err)
	}

	items := make([]models.FeedItem, 0, len(titles))
	for _, t := range titles {
		items = append(items, models.FeedItem{
			Title:     t.Title,
			GrowthPct: likesToGrowth(t.Likes),
			URL:       t.URL,
		})
	}

	return items, nil
}

// likesToGrowth maps a raw like count onto the growth scale shared with the
// other sources. Buckets are coarse on purpose: like counts across platforms
// are not comparable beyond order of magnitude.
func likesToGrowth(likes int) int {
	switch {
	case likes >= 10000:
		return 200
	case likes >= 1000:
		return 100
	case likes >= 100:
		return 50
	case likes > 0:
		return 10
	default:
		return 0
	}
}
