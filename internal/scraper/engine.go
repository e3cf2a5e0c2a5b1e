package scraper

import (
	"context"
	"strings"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/logging"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

// Result is the output of one crawl run, before validation
type Result struct {
	Records      []models.RawRecord
	PagesVisited int
}

// Engine runs the extraction algorithm shared by every strategy: walk the
// entry URLs, parse listing cards, visit detail pages for records not seen
// yet this run, and paginate up to the vendor's page budget.
type Engine struct {
	resolver *Resolver
	logger   logging.Logger
}

// NewEngine creates an engine over the given strategy resolver
func NewEngine(resolver *Resolver) *Engine {
	return &Engine{
		resolver: resolver,
		logger:   logging.GetGlobalLogger(),
	}
}

// Run executes one full crawl of a vendor and returns every raw record
// extracted. The session is torn down before Run returns, success or not.
func (e *Engine) Run(ctx context.Context, vendor *config.VendorConfig) (*Result, error) {
	strategy, err := e.resolver.For(vendor.Method)
	if err != nil {
		return nil, err
	}

	session, err := strategy.NewSession(ctx, vendor)
	if err != nil {
		return nil, utils.NewExtractionError("failed to open crawl session", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.logger.Warn("Failed to close crawl session", map[string]interface{}{
				"vendor_id": vendor.ID,
				"error":     cerr.Error(),
			})
		}
	}()

	result := &Result{}
	// seen bounds detail visits within this run only; cross-run dedup is the
	// pipeline's job
	seen := make(map[string]struct{})

	for _, entry := range vendor.EntryURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		done, err := e.crawlEntry(ctx, session, vendor, entry, seen, result)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	e.logger.Info("Crawl finished", map[string]interface{}{
		"vendor_id":     vendor.ID,
		"records":       len(result.Records),
		"pages_visited": result.PagesVisited,
	})

	return result, nil
}

// crawlEntry walks one entry URL through its pagination budget. It returns
// done=true when the vendor's record cap has been reached and the remaining
// entry URLs should be skipped.
func (e *Engine) crawlEntry(ctx context.Context, session Session, vendor *config.VendorConfig, entry string, seen map[string]struct{}, result *Result) (bool, error) {
	html, err := session.LoadListing(ctx, entry)
	if err != nil {
		return false, utils.NewExtractionError("failed to load listing "+entry, err)
	}
	result.PagesVisited++

	pageURL := entry
	advances := 0

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		records, err := ParseListing(html, vendor, pageURL)
		if err != nil {
			return false, utils.NewExtractionError("failed to parse listing "+pageURL, err)
		}

		if len(records) == 0 {
			if len(seen) == 0 {
				// Nothing collected anywhere this run: the card selector
				// probably no longer matches the vendor's markup.
				e.logger.Warn("No product cards matched, selector may be stale", map[string]interface{}{
					"vendor_id": vendor.ID,
					"url":       pageURL,
				})
			}
			// An empty page is end-of-results, not an engine error
			return false, nil
		}

		for i := range records {
			record := &records[i]

			key := strings.ToUpper(strings.TrimSpace(record.PartNumber))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if vendor.VisitChildPages && session.SupportsChildPages() && record.SourceURL != "" && record.SourceURL != pageURL {
				e.visitDetail(ctx, session, vendor, record)
			}

			result.Records = append(result.Records, *record)
			if len(result.Records) >= vendor.MaxRecords {
				e.logger.Warn("Record cap reached, stopping crawl early", map[string]interface{}{
					"vendor_id":   vendor.ID,
					"max_records": vendor.MaxRecords,
				})
				return true, nil
			}
		}

		next, ok, err := session.Advance(ctx)
		if err != nil {
			return false, utils.NewExtractionError("pagination failed on "+pageURL, err)
		}
		advances++
		if !ok || advances >= vendor.MaxPages {
			return false, nil
		}

		html = next
		result.PagesVisited++
	}
}

// visitDetail enriches a record from its detail page. Detail failures are
// tolerated: the listing-level record is kept and the error logged.
func (e *Engine) visitDetail(ctx context.Context, session Session, vendor *config.VendorConfig, record *models.RawRecord) {
	detailURL := record.SourceURL

	html, err := session.VisitDetail(ctx, detailURL)
	if err != nil {
		e.logger.Warn("Detail page visit failed, keeping listing data", map[string]interface{}{
			"vendor_id":   vendor.ID,
			"part_number": record.PartNumber,
			"url":         detailURL,
			"error":       err.Error(),
		})
		return
	}

	if err := MergeDetail(record, html, vendor, detailURL); err != nil {
		e.logger.Warn("Failed to parse detail page", map[string]interface{}{
			"vendor_id":   vendor.ID,
			"part_number": record.PartNumber,
			"url":         detailURL,
			"error":       err.Error(),
		})
	}
}
