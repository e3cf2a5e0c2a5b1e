package static

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/scraper"
)

// Strategy fetches vendor listings as plain HTTP documents. It is the cheap
// path for vendors whose markup is complete without JavaScript: one GET per
// entry URL, no pagination, no detail visits.
type Strategy struct {
	cfg     *config.Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewStrategy creates the static HTTP strategy
func NewStrategy(cfg *config.Config) *Strategy {
	perMin := cfg.Scraper.PagesPerMin
	if perMin <= 0 {
		perMin = 60
	}

	return &Strategy{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Scraper.PageTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
	}
}

// Method reports the extraction method this strategy serves
func (s *Strategy) Method() config.ExtractionMethod {
	return config.MethodHTTP
}

// NewSession returns a session over the shared HTTP client
func (s *Strategy) NewSession(ctx context.Context, vendor *config.VendorConfig) (scraper.Session, error) {
	return &session{strategy: s, vendor: vendor}, nil
}

type session struct {
	strategy *Strategy
	vendor   *config.VendorConfig
}

// LoadListing fetches a listing URL once and returns the response body
func (s *session) LoadListing(ctx context.Context, url string) (string, error) {
	return s.fetch(ctx, url)
}

// Advance always reports exhaustion: static vendors get one fetch per entry
// URL, pagination requires the browser strategy.
func (s *session) Advance(ctx context.Context) (string, bool, error) {
	return "", false, nil
}

// VisitDetail is unsupported on the static path
func (s *session) VisitDetail(ctx context.Context, url string) (string, error) {
	return "", fmt.Errorf("detail visits are not supported by the http strategy")
}

func (s *session) SupportsChildPages() bool {
	return false
}

func (s *session) Close() error {
	return nil
}

func (s *session) fetch(ctx context.Context, url string) (string, error) {
	if err := s.strategy.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	if ua := s.strategy.cfg.Scraper.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.strategy.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return string(body), nil
}
