package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"partshub-catalog/internal/config"
	"partshub-catalog/pkg/models"
)

func testVendor() *config.VendorConfig {
	return &config.VendorConfig{
		ID:         "acme",
		VendorName: "Acme Industrial",
		BaseURL:    "https://www.acme.example",
		Selectors: config.SelectorSet{
			ProductCard: ".product-card",
			ProductName: ".product-title",
			PartNumber:  ".part-number",
			Category:    ".category",
			Image:       "img.product-img",
		},
	}
}

func TestParseListing(t *testing.T) {
	vendor := testVendor()

	html := `
	<div class="product-card">
		<a href="/products/widget-a">
			<span class="product-title">Widget A</span>
		</a>
		<span class="part-number">WA-100</span>
		<span class="category">Widgets</span>
		<img class="product-img" src="/img/wa-100.jpg">
	</div>
	<div class="product-card">
		<a href="https://www.acme.example/products/widget-b">
			<span class="product-title">Widget B</span>
		</a>
		<span class="part-number">WB-200</span>
	</div>`

	records, err := ParseListing(html, vendor, "https://www.acme.example/catalog")
	if err != nil {
		t.Fatalf("ParseListing() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ParseListing() returned %d records, want 2", len(records))
	}

	first := records[0]
	if first.PartNumber != "WA-100" {
		t.Errorf("PartNumber = %q, want %q", first.PartNumber, "WA-100")
	}
	if first.ProductName != "Widget A" {
		t.Errorf("ProductName = %q, want %q", first.ProductName, "Widget A")
	}
	if first.Category != "Widgets" {
		t.Errorf("Category = %q, want %q", first.Category, "Widgets")
	}
	if first.SourceURL != "https://www.acme.example/products/widget-a" {
		t.Errorf("SourceURL = %q, want absolutized detail link", first.SourceURL)
	}
	if len(first.ImageURLs) != 1 || first.ImageURLs[0] != "https://www.acme.example/img/wa-100.jpg" {
		t.Errorf("ImageURLs = %v, want absolutized image", first.ImageURLs)
	}
	if first.VendorName != "Acme Industrial" {
		t.Errorf("VendorName = %q, want %q", first.VendorName, "Acme Industrial")
	}
}

func TestParseListingPartNumberFallback(t *testing.T) {
	vendor := testVendor()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "label with colon",
			html: `<div class="product-card"><span class="product-title">Bearing</span><p>Part no.: BRG-55</p></div>`,
			want: "BRG-55",
		},
		{
			name: "label without period",
			html: `<div class="product-card"><span class="product-title">Bearing</span><p>Part No: brg.55/A</p></div>`,
			want: "brg.55/A",
		},
		{
			name: "no part number drops the card",
			html: `<div class="product-card"><span class="product-title">Bearing</span></div>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseListing(tt.html, vendor, "https://www.acme.example/catalog")
			if err != nil {
				t.Fatalf("ParseListing() error = %v", err)
			}
			if tt.want == "" {
				if len(records) != 0 {
					t.Fatalf("ParseListing() returned %d records, want 0", len(records))
				}
				return
			}
			if len(records) != 1 {
				t.Fatalf("ParseListing() returned %d records, want 1", len(records))
			}
			if records[0].PartNumber != tt.want {
				t.Errorf("PartNumber = %q, want %q", records[0].PartNumber, tt.want)
			}
		})
	}
}

func TestParseListingPrefersDataSrc(t *testing.T) {
	vendor := testVendor()

	html := `<div class="product-card">
		<span class="product-title">Widget</span>
		<span class="part-number">W-1</span>
		<img class="product-img" src="/img/placeholder.gif" data-src="/img/real.jpg">
	</div>`

	records, err := ParseListing(html, vendor, "https://www.acme.example/catalog")
	if err != nil {
		t.Fatalf("ParseListing() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ParseListing() returned %d records, want 1", len(records))
	}
	if got := records[0].ImageURLs[0]; got != "https://www.acme.example/img/real.jpg" {
		t.Errorf("ImageURLs[0] = %q, want data-src value", got)
	}
}

func TestMergeDetail(t *testing.T) {
	vendor := testVendor()
	vendor.Selectors.DetailSpecTable = "table.specs"
	vendor.Selectors.DetailPDFLink = "a.datasheet"

	record := models.RawRecord{
		VendorName:  "Acme Industrial",
		PartNumber:  "WA-100",
		ProductName: "Widget A",
		Category:    "Widgets",
	}

	html := `
	<nav aria-label="breadcrumb">
		<li>Home</li>
		<li>Catalog</li>
		<li>Precision Widgets</li>
		<li>Widget A</li>
	</nav>
	<img class="product-img" src="/img/spacer.gif">
	<img class="product-img" data-src="/img/wa-100-large.jpg">
	<table class="specs">
		<tr><td>Weight</td><td>2.5 kg</td></tr>
		<tr><td>Material</td><td>Steel</td></tr>
	</table>
	<a class="datasheet" href="/docs/wa-100.pdf">Datasheet</a>`

	if err := MergeDetail(&record, html, vendor, "https://www.acme.example/products/widget-a"); err != nil {
		t.Fatalf("MergeDetail() error = %v", err)
	}

	if record.Category != "Precision Widgets" {
		t.Errorf("Category = %q, want second-to-last breadcrumb", record.Category)
	}
	if len(record.ImageURLs) != 1 || record.ImageURLs[0] != "https://www.acme.example/img/wa-100-large.jpg" {
		t.Errorf("ImageURLs = %v, want spacer filtered out", record.ImageURLs)
	}
	if record.Specifications["Weight"] != "2.5 kg" || record.Specifications["Material"] != "Steel" {
		t.Errorf("Specifications = %v, want flattened table", record.Specifications)
	}
	if len(record.DocumentURLs) != 1 || record.DocumentURLs[0] != "https://www.acme.example/docs/wa-100.pdf" {
		t.Errorf("DocumentURLs = %v, want datasheet link", record.DocumentURLs)
	}
	if record.SourceURL != "https://www.acme.example/products/widget-a" {
		t.Errorf("SourceURL = %q, want detail URL", record.SourceURL)
	}
}

func TestMergeDetailWithoutImageSelectorKeepsListingImages(t *testing.T) {
	vendor := testVendor()
	vendor.Selectors.Image = ""

	record := models.RawRecord{
		VendorName:  "Acme Industrial",
		PartNumber:  "WA-100",
		ProductName: "Widget A",
		ImageURLs:   []string{"https://www.acme.example/img/wa-100.jpg"},
	}

	html := `
	<img src="/img/logo.png">
	<img src="/img/cart-icon.svg">
	<img src="/track/pixel.gif">
	<p>Widget A detail page</p>`

	if err := MergeDetail(&record, html, vendor, "https://www.acme.example/products/widget-a"); err != nil {
		t.Fatalf("MergeDetail() error = %v", err)
	}

	if len(record.ImageURLs) != 1 || record.ImageURLs[0] != "https://www.acme.example/img/wa-100.jpg" {
		t.Errorf("ImageURLs = %v, want listing image untouched", record.ImageURLs)
	}
}

func TestFlattenSpecTableSkipsNestedRows(t *testing.T) {
	html := `<table>
		<tr><td>Dimensions</td><td>
			<table>
				<tr><td>Length</td><td>10 mm</td></tr>
				<tr><td>Width</td><td>5 mm</td></tr>
			</table>
		</td></tr>
		<tr><td>Weight</td><td>1 kg</td></tr>
	</table>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	specs := FlattenSpecTable(doc.Find("table").First())

	if _, ok := specs["Dimensions"]; ok {
		t.Error("row with nested table should be skipped")
	}
	if specs["Length"] != "10 mm" {
		t.Errorf("specs[Length] = %q, want %q", specs["Length"], "10 mm")
	}
	if specs["Width"] != "5 mm" {
		t.Errorf("specs[Width] = %q, want %q", specs["Width"], "5 mm")
	}
	if specs["Weight"] != "1 kg" {
		t.Errorf("specs[Weight] = %q, want %q", specs["Weight"], "1 kg")
	}
}

func TestAbsolutizeURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{
			name: "relative path",
			base: "https://www.acme.example",
			href: "/products/x",
			want: "https://www.acme.example/products/x",
		},
		{
			name: "already absolute",
			base: "https://www.acme.example",
			href: "https://cdn.acme.example/img/x.jpg",
			want: "https://cdn.acme.example/img/x.jpg",
		},
		{
			name: "protocol relative",
			base: "https://www.acme.example",
			href: "//cdn.acme.example/img/x.jpg",
			want: "https://cdn.acme.example/img/x.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := absolutizeURL(tt.base, tt.href); got != tt.want {
				t.Errorf("absolutizeURL(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}
