package browser

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/scraper"
)

// Strategy drives vendors whose listings need JavaScript rendering. Each job
// gets one browser with one listing page, reused across every pagination step;
// detail pages are opened as separate tabs and closed per visit.
type Strategy struct {
	cfg     *config.Config
	limiter *rate.Limiter
	logger  logging.Logger
}

// NewStrategy creates the browser strategy. The rate limiter is shared across
// sessions so the page budget holds per process, not per job.
func NewStrategy(cfg *config.Config) *Strategy {
	perMin := cfg.Scraper.PagesPerMin
	if perMin <= 0 {
		perMin = 60
	}

	return &Strategy{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
		logger:  logging.GetGlobalLogger(),
	}
}

// Method reports the extraction method this strategy serves
func (s *Strategy) Method() config.ExtractionMethod {
	return config.MethodBrowser
}

// NewSession launches a browser and opens the listing page for one job
func (s *Strategy) NewSession(ctx context.Context, vendor *config.VendorConfig) (scraper.Session, error) {
	l := launcher.New().
		Headless(s.cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").          // prevents GPU context failures in Docker
		Set("disable-dev-shm-usage") // overcomes Docker shared memory limits

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	} else {
		s.logger.Warn("System Chrome not found, Rod will download browser", map[string]interface{}{})
	}

	if s.cfg.Scraper.UserAgent != "" {
		l = l.Set("user-agent", s.cfg.Scraper.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := s.newStealthPage(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, err
	}

	s.logger.Debug("Browser session started", map[string]interface{}{
		"vendor_id": vendor.ID,
	})

	return &Session{
		strategy: s,
		launcher: l,
		browser:  b,
		page:     page,
		vendor:   vendor,
	}, nil
}

// newStealthPage creates a page with stealth evasions and a desktop viewport
func (s *Strategy) newStealthPage(b *rod.Browser) (*rod.Page, error) {
	var page *rod.Page
	var err error

	if s.cfg.Scraper.StealthMode {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if verr := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); verr != nil {
		s.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": verr.Error(),
		})
	}

	if s.cfg.Scraper.UserAgent != "" {
		if uerr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: s.cfg.Scraper.UserAgent,
		}); uerr != nil {
			s.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": uerr.Error(),
			})
		}
	}

	return page, nil
}

// systemChromePath finds a system-installed Chrome/Chromium binary
func systemChromePath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
