package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dealcurator/dealcurator-backend/internal/pipeline"
)

// ClickSource reports accumulated clicks for a shortened offer link. Name
// labels the metric rows it produces.
type ClickSource interface {
	Name() string
	Clicks(ctx context.Context, shortURL string) (int64, error)
}

// SalesSource reports attributed sales for an offer link. No affiliate
// network integration exists yet, so the placeholder is the only
// implementation.
type SalesSource interface {
	Sales(ctx context.Context, shortURL string) (int64, error)
}

// ── HTTP click source ─────────────────────────────────────────────────────────

// HTTPClickSource queries a bitly-compatible click summary endpoint.
type HTTPClickSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClickSource(baseURL, token string, timeout time.Duration) *HTTPClickSource {
	return &HTTPClickSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPClickSource) Name() string { return "shortener" }

func (s *HTTPClickSource) Clicks(ctx context.Context, shortURL string) (int64, error) {
	// The API identifies a link by host/path, without the scheme.
	link := shortURL
	if u, err := url.Parse(shortURL); err == nil && u.Host != "" {
		link = u.Host + u.Path
	}

	endpoint := fmt.Sprintf("%s/bitlinks/%s/clicks/summary", s.baseURL, url.PathEscape(link))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	res, err := s.client.Do(req)
	if err != nil {
		return 0, pipeline.Transient("click summary", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, pipeline.Transient("click summary", fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var body struct {
		TotalClicks int64 `json:"total_clicks"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode click summary: %w", err)
	}
	return body.TotalClicks, nil
}

// ── Placeholder ───────────────────────────────────────────────────────────────

// PlaceholderSource stands in when no metrics backend is configured. It keeps
// the metric rows present with zero counters so downstream reporting does not
// special-case missing data.
type PlaceholderSource struct{}

func (PlaceholderSource) Name() string { return "placeholder" }

func (PlaceholderSource) Clicks(ctx context.Context, shortURL string) (int64, error) {
	return 0, nil
}

func (PlaceholderSource) Sales(ctx context.Context, shortURL string) (int64, error) {
	return 0, nil
}
