package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished jobs by vendor and outcome
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_jobs_total",
		Help: "Finished scraper jobs by vendor and outcome.",
	}, []string{"vendor_id", "outcome"})

	// JobsRunning tracks jobs currently executing
	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_jobs_running",
		Help: "Scraper jobs currently executing.",
	})

	// JobDuration observes end-to-end job runtime
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_job_duration_seconds",
		Help:    "End-to-end scraper job duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"vendor_id"})

	// RecordsExtracted counts raw records pulled out of vendor markup
	RecordsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_records_extracted_total",
		Help: "Raw records extracted from vendor pages.",
	}, []string{"vendor_id"})

	// RecordsSaved counts new catalog entries
	RecordsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_records_saved_total",
		Help: "New catalog entries persisted.",
	}, []string{"vendor_id"})

	// RecordsUpdated counts refreshed catalog entries
	RecordsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_records_updated_total",
		Help: "Existing catalog entries updated.",
	}, []string{"vendor_id"})

	// RecordsRejected counts records that failed validation
	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_records_rejected_total",
		Help: "Records rejected by validation.",
	}, []string{"vendor_id"})

	// PagesVisited counts listing and detail pages fetched
	PagesVisited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_pages_visited_total",
		Help: "Vendor pages visited during crawls.",
	}, []string{"vendor_id"})
)
