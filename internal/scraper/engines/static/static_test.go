package static

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"partshub-catalog/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.UserAgent = "catalog-test-agent"
	cfg.Scraper.PageTimeout = 5 * time.Second
	cfg.Scraper.PagesPerMin = 6000
	return cfg
}

func testVendor() *config.VendorConfig {
	return &config.VendorConfig{
		ID:         "acme",
		VendorName: "Acme Industrial",
		BaseURL:    "https://www.acme.example",
		EntryURLs:  []string{"https://www.acme.example/catalog"},
		Method:     config.MethodHTTP,
	}
}

func TestLoadListing(t *testing.T) {
	strategy := NewStrategy(testConfig())

	httpmock.ActivateNonDefault(strategy.client)
	defer httpmock.DeactivateAndReset()

	const body = `<html><div class="card">Widget</div></html>`
	httpmock.RegisterResponder("GET", "https://www.acme.example/catalog",
		func(req *http.Request) (*http.Response, error) {
			if ua := req.Header.Get("User-Agent"); ua != "catalog-test-agent" {
				t.Errorf("User-Agent = %q, want configured agent", ua)
			}
			return httpmock.NewStringResponse(200, body), nil
		})

	session, err := strategy.NewSession(context.Background(), testVendor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer session.Close()

	html, err := session.LoadListing(context.Background(), "https://www.acme.example/catalog")
	if err != nil {
		t.Fatalf("LoadListing() error = %v", err)
	}
	if html != body {
		t.Errorf("LoadListing() = %q, want fixture body", html)
	}
}

func TestLoadListingNonOKStatus(t *testing.T) {
	strategy := NewStrategy(testConfig())

	httpmock.ActivateNonDefault(strategy.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://www.acme.example/catalog",
		httpmock.NewStringResponder(503, "maintenance"))

	session, _ := strategy.NewSession(context.Background(), testVendor())
	defer session.Close()

	if _, err := session.LoadListing(context.Background(), "https://www.acme.example/catalog"); err == nil {
		t.Fatal("LoadListing() on 503 returned nil error")
	}
}

func TestSessionIsSingleFetch(t *testing.T) {
	strategy := NewStrategy(testConfig())

	session, err := strategy.NewSession(context.Background(), testVendor())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer session.Close()

	if session.SupportsChildPages() {
		t.Error("SupportsChildPages() = true, want false")
	}

	if _, ok, _ := session.Advance(context.Background()); ok {
		t.Error("Advance() = true, want pagination exhausted")
	}

	if _, err := session.VisitDetail(context.Background(), "https://www.acme.example/p/x"); err == nil {
		t.Error("VisitDetail() returned nil error, want unsupported")
	}
}
