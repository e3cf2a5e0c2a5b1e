package scraper

import (
	"context"

	"partshub-catalog/internal/config"
)

// Session is one crawl session exclusively owned by a single job. The engine
// drives it page by page; the session owns whatever transport state that takes
// (a live browser for the browser strategy, an HTTP client for the static
// one). Close must release everything on every exit path.
type Session interface {
	// LoadListing loads a listing entry URL and returns its rendered HTML.
	LoadListing(ctx context.Context, url string) (string, error)

	// Advance performs one pagination step on the current listing: following
	// the next-link's href when it has one, otherwise clicking the control and
	// waiting for the listing to settle. It returns the new listing HTML and
	// false when pagination is exhausted.
	Advance(ctx context.Context) (string, bool, error)

	// VisitDetail loads a product detail page and returns its HTML. The
	// underlying page/tab is scoped to the call and closed before it returns.
	VisitDetail(ctx context.Context, url string) (string, error)

	// SupportsChildPages reports whether this session can visit detail pages.
	SupportsChildPages() bool

	// Close tears the session down: page, then context, then browser.
	Close() error
}

// Strategy creates sessions for one extraction method
type Strategy interface {
	Method() config.ExtractionMethod
	NewSession(ctx context.Context, vendor *config.VendorConfig) (Session, error)
}
