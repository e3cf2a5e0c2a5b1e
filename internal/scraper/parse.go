package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partshub-catalog/internal/config"
	"partshub-catalog/pkg/models"
)

// partNumberFallback matches "Part no.: <token>" in a card's visible text.
// Some vendors render the part number without a stable selector; the label
// text is the only reliable anchor.
var partNumberFallback = regexp.MustCompile(`(?i)part\s+no\.?\s*:\s*([A-Za-z0-9][A-Za-z0-9._\-/]*)`)

// breadcrumbSelector covers the breadcrumb markup variants seen across
// vendor detail pages.
const breadcrumbSelector = ".breadcrumb-item, .breadcrumb li, nav[aria-label='breadcrumb'] li"

// ParseListing extracts candidate records from one listing page. Records
// missing a part number after the fallback scan are dropped here; they can
// never be deduplicated downstream.
func ParseListing(html string, vendor *config.VendorConfig, pageURL string) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	sel := vendor.Selectors
	var records []models.RawRecord

	doc.Find(sel.ProductCard).Each(func(i int, card *goquery.Selection) {
		record := models.RawRecord{
			VendorName: vendor.VendorName,
			SourceURL:  pageURL,
		}

		record.ProductName = cleanText(card.Find(sel.ProductName).First().Text())

		record.PartNumber = cleanText(card.Find(sel.PartNumber).First().Text())
		if record.PartNumber == "" {
			if m := partNumberFallback.FindStringSubmatch(card.Text()); m != nil {
				record.PartNumber = m[1]
			}
		}
		if record.PartNumber == "" {
			return
		}

		if sel.Category != "" {
			record.Category = cleanText(card.Find(sel.Category).First().Text())
		}

		if sel.Image != "" {
			if img := card.Find(sel.Image).First(); img.Length() > 0 {
				if src := imageSource(img); src != "" {
					record.ImageURLs = []string{absolutizeURL(vendor.BaseURL, src)}
				}
			}
		}

		// Detail link: anchor around the product name, else the card's first link
		if href, ok := card.Find(sel.ProductName).First().Closest("a").Attr("href"); ok {
			record.SourceURL = absolutizeURL(vendor.BaseURL, href)
		} else if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			record.SourceURL = absolutizeURL(vendor.BaseURL, href)
		}

		records = append(records, record)
	})

	return records, nil
}

// MergeDetail enriches a record with fields only present on its detail page:
// refined category, full-resolution images, flattened spec tables and
// datasheet links.
func MergeDetail(record *models.RawRecord, html string, vendor *config.VendorConfig, detailURL string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	sel := vendor.Selectors

	if category := breadcrumbCategory(doc); category != "" {
		record.Category = category
	}

	// Without an image selector the listing-level images stand: a bare img
	// scan would sweep up logos, icons and tracking pixels.
	if sel.Image != "" {
		var images []string
		doc.Find(sel.Image).Each(func(i int, img *goquery.Selection) {
			src := imageSource(img)
			if src == "" || strings.Contains(src, "spacer.gif") {
				return
			}
			images = append(images, absolutizeURL(vendor.BaseURL, src))
		})
		if len(images) > 0 {
			record.ImageURLs = images
		}
	}

	specSel := sel.DetailSpecTable
	if specSel == "" {
		specSel = "table"
	}
	specs := record.Specifications
	if specs == nil {
		specs = make(map[string]string)
	}
	doc.Find(specSel).Each(func(i int, table *goquery.Selection) {
		for k, v := range FlattenSpecTable(table) {
			specs[k] = v
		}
	})
	if len(specs) > 0 {
		record.Specifications = specs
	}

	if sel.DetailPDFLink != "" {
		var docs []string
		doc.Find(sel.DetailPDFLink).Each(func(i int, link *goquery.Selection) {
			if href, ok := link.Attr("href"); ok && href != "" {
				docs = append(docs, absolutizeURL(vendor.BaseURL, href))
			}
		})
		if len(docs) > 0 {
			record.DocumentURLs = docs
		}
	}

	record.SourceURL = detailURL
	return nil
}

// FlattenSpecTable turns a spec table into key/value pairs. Rows need exactly
// a label cell and a value cell; a row whose value cell holds a nested table
// is skipped, because Find("tr") is recursive and already yields the nested
// rows on their own.
func FlattenSpecTable(table *goquery.Selection) map[string]string {
	specs := make(map[string]string)

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return
		}

		value := cells.Eq(1)
		if value.Find("table").Length() > 0 {
			return
		}

		key := cleanText(cells.Eq(0).Text())
		val := cleanText(value.Text())
		if key != "" && val != "" {
			specs[key] = val
		}
	})

	return specs
}

// breadcrumbCategory returns the second-to-last breadcrumb segment, the
// product's own category rather than the product name the trail ends with.
func breadcrumbCategory(doc *goquery.Document) string {
	crumbs := doc.Find(breadcrumbSelector)
	if crumbs.Length() < 2 {
		return ""
	}
	return cleanText(crumbs.Eq(crumbs.Length() - 2).Text())
}

// imageSource prefers data-src (lazy loaders) over src
func imageSource(img *goquery.Selection) string {
	if src, ok := img.Attr("data-src"); ok && src != "" {
		return src
	}
	src, _ := img.Attr("src")
	return src
}

// absolutizeURL resolves a possibly relative href against the vendor base URL
func absolutizeURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// cleanText normalizes whitespace in extracted text
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
