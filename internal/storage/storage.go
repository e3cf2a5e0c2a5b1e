package storage

import (
	"context"
	"errors"
	"time"

	"partshub-catalog/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// JobCounts carries the per-job record counters written at completion
type JobCounts struct {
	Extracted int
	Saved     int
	Updated   int
	Rejected  int
}

// CatalogStore persists and reads catalog entries. Writes go through a batch
// so one pipeline run commits atomically.
type CatalogStore interface {
	// BeginBatch opens a write batch. The caller must Commit or Rollback.
	BeginBatch(ctx context.Context) (CatalogBatch, error)

	// ListByVendor returns catalog entries for a vendor, newest first,
	// narrowed by the filter's category and search terms.
	ListByVendor(ctx context.Context, vendorName string, filter models.CatalogFilter) ([]*models.CatalogEntry, error)

	// CountByVendor returns the product count per vendor
	CountByVendor(ctx context.Context) ([]models.VendorProductCount, error)
}

// CatalogBatch is one atomic write unit over the catalog. Reads inside the
// batch see its own uncommitted writes.
type CatalogBatch interface {
	// GetByDedupKey returns the entry with the given dedup key, or
	// ErrNotFound.
	GetByDedupKey(ctx context.Context, key string) (*models.CatalogEntry, error)

	// Insert adds a new catalog entry
	Insert(ctx context.Context, entry *models.CatalogEntry) error

	// Update overwrites the mutable fields of an existing entry and bumps
	// its last-seen timestamp.
	Update(ctx context.Context, entry *models.CatalogEntry) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// JobStore persists scraper job records. Status transitions are
// one-directional; a terminal job is never reopened.
type JobStore interface {
	// CreateJob inserts a queued job for a vendor
	CreateJob(ctx context.Context, vendorID string, attempt int) (*models.ScraperJob, error)

	// MarkRunning moves a queued job to running and stamps started_at
	MarkRunning(ctx context.Context, id int64) error

	// MarkCompleted moves a running job to completed with its counters
	MarkCompleted(ctx context.Context, id int64, counts JobCounts) error

	// MarkFailed moves a job to failed with a truncated error message
	MarkFailed(ctx context.Context, id int64, errMsg string) error

	// GetJob returns one job by id, or ErrNotFound
	GetJob(ctx context.Context, id int64) (*models.ScraperJob, error)

	// ListJobs returns jobs newest first, narrowed by the filter
	ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.ScraperJob, error)

	// RecentOutcomes returns completed/failed counts for jobs created since
	// the given time.
	RecentOutcomes(ctx context.Context, since time.Time) ([]models.JobOutcomeCount, error)

	// LastSuccessful returns the most recent completed job per vendor
	LastSuccessful(ctx context.Context) ([]models.VendorLastSuccess, error)
}
