package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dealcurator/dealcurator-backend/internal/pipeline"
)

// FeedSource yields an unordered batch of candidate records per run. Concrete
// fetch strategies (plain HTTP, headless browser, authenticated session) live
// behind this boundary.
type FeedSource interface {
	Fetch(ctx context.Context) ([]Candidate, error)
}

// HTTPFeed fetches candidates from a JSON endpoint. Calls are rate limited and
// carry an explicit timeout; failures are reported as transient.
type HTTPFeed struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFeed creates a feed client. ratePerSec bounds request frequency.
func NewHTTPFeed(url string, timeout time.Duration, ratePerSec float64) *HTTPFeed {
	return &HTTPFeed{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

func (f *HTTPFeed) Fetch(ctx context.Context) ([]Candidate, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pipeline.Transient("feed fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.Transient("feed fetch", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var candidates []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}
	return candidates, nil
}
