package publication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dealcurator/dealcurator-backend/internal/pipeline"
)

// Shortener exchanges a long affiliate URL for a short one. Shortening is
// best effort everywhere it is used: a failure falls back to the long URL.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// ── HTTP shortener ────────────────────────────────────────────────────────────

// HTTPShortener talks to a bitly-compatible shorten endpoint.
type HTTPShortener struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPShortener(baseURL, token string, timeout time.Duration) *HTTPShortener {
	return &HTTPShortener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"long_url": longURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/shorten", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return "", pipeline.Transient("shorten", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", pipeline.Transient("shorten", fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var body struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode shorten response: %w", err)
	}
	if body.Link == "" {
		return "", fmt.Errorf("shorten response carried no link")
	}
	return body.Link, nil
}

// ── Noop ──────────────────────────────────────────────────────────────────────

// NoopShortener passes the long URL through. Used when no shortener is
// configured.
type NoopShortener struct{}

func (NoopShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	return longURL, nil
}
