package models

import "time"

// JobStatus represents the lifecycle state of a scraper job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ScraperJob tracks one execution of the crawl-and-persist pipeline for one
// vendor. Transitions are one-directional: queued -> running -> completed or
// failed. A retry is a fresh job record, never a reused one.
type ScraperJob struct {
	ID               int64      `json:"id"`
	VendorID         string     `json:"vendor_id"`
	Status           JobStatus  `json:"status"`
	Attempt          int        `json:"attempt"`
	RecordsExtracted int        `json:"records_extracted"`
	RecordsSaved     int        `json:"records_saved"`
	RecordsUpdated   int        `json:"records_updated"`
	RecordsRejected  int        `json:"records_rejected"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsTerminal reports whether the job has reached a final state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobFilter narrows job listings on the status interface
type JobFilter struct {
	Status   JobStatus
	VendorID string
	Limit    int
	Offset   int
}

// CatalogFilter narrows catalog reads on the read interface
type CatalogFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}
