package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"partshub-catalog/internal/config"
)

// Session owns one browser for the lifetime of one job. The listing page is
// reused across pagination; detail visits open and close their own tab.
type Session struct {
	strategy *Strategy
	launcher interface{ Cleanup() }
	browser  *rod.Browser
	page     *rod.Page
	vendor   *config.VendorConfig
}

// LoadListing navigates the listing page to a listing URL and returns its HTML
func (s *Session) LoadListing(ctx context.Context, url string) (string, error) {
	if err := s.strategy.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if err := s.navigate(ctx, s.page, url); err != nil {
		return "", err
	}

	return s.page.HTML()
}

// Advance performs one pagination step. When the next control carries an
// href it is followed directly; otherwise the control is clicked and the
// page given time to settle before re-reading the DOM.
func (s *Session) Advance(ctx context.Context) (string, bool, error) {
	selector := s.vendor.Selectors.PaginationNext
	if selector == "" {
		return "", false, nil
	}

	var el *rod.Element
	err := rod.Try(func() {
		el = s.page.Timeout(2 * time.Second).MustElement(selector)
	})
	if err != nil {
		// No next control on the page means pagination is exhausted
		return "", false, nil
	}

	if err := s.strategy.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	href, aerr := el.Attribute("href")
	if aerr == nil && href != nil && *href != "" {
		if err := s.navigate(ctx, s.page, *href); err != nil {
			return "", false, err
		}
	} else {
		if err := rod.Try(func() {
			el.MustClick()
		}); err != nil {
			return "", false, fmt.Errorf("failed to click pagination control: %w", err)
		}
		time.Sleep(s.strategy.cfg.Scraper.SettleDelay)
		if err := rod.Try(func() {
			s.page.MustWaitLoad()
		}); err != nil {
			s.strategy.logger.Debug("Wait after pagination click failed", map[string]interface{}{
				"vendor_id": s.vendor.ID,
				"error":     err.Error(),
			})
		}
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

// VisitDetail loads a detail page in its own tab. The tab is closed before
// returning on every path so a long run never accumulates open pages.
func (s *Session) VisitDetail(ctx context.Context, url string) (string, error) {
	if err := s.strategy.limiter.Wait(ctx); err != nil {
		return "", err
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open detail tab: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			s.strategy.logger.Debug("Failed to close detail tab", map[string]interface{}{
				"vendor_id": s.vendor.ID,
				"error":     cerr.Error(),
			})
		}
	}()

	if err := s.navigate(ctx, page, url); err != nil {
		return "", err
	}

	return page.HTML()
}

// SupportsChildPages reports detail-page support, always on for the browser
func (s *Session) SupportsChildPages() bool {
	return true
}

// Close tears the session down in order: page, browser, launcher
func (s *Session) Close() error {
	var firstErr error

	if s.page != nil {
		if err := rod.Try(func() {
			s.page.MustClose()
		}); err != nil && firstErr == nil {
			firstErr = err
		}
		s.page = nil
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.browser = nil
	}

	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}

	return firstErr
}

// navigate loads a URL on the given page bounded by the vendor page timeout
func (s *Session) navigate(ctx context.Context, page *rod.Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.vendor.PageTimeout)
	defer cancel()

	err := rod.Try(func() {
		page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}
