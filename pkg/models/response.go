package models

import "time"

// TriggerResponse represents the response from a manual job trigger
type TriggerResponse struct {
	Message   string    `json:"message"`
	VendorID  string    `json:"vendor_id"`
	JobID     int64     `json:"job_id"`
	Status    JobStatus `json:"status"`
	RequestID string    `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// VendorProductCount is one row of the per-vendor catalog size stats
type VendorProductCount struct {
	Vendor string `json:"vendor"`
	Count  int64  `json:"count"`
}

// JobOutcomeCount is one bucket of the recent job outcome histogram
type JobOutcomeCount struct {
	VendorID string    `json:"vendor_id"`
	Status   JobStatus `json:"status"`
	Count    int64     `json:"count"`
}

// VendorLastSuccess records the most recent successful completion per vendor
type VendorLastSuccess struct {
	VendorID    string    `json:"vendor_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// StatsResponse aggregates scraper statistics for the admin surface
type StatsResponse struct {
	ProductsByVendor []VendorProductCount `json:"products_by_vendor"`
	RecentJobs       []JobOutcomeCount    `json:"recent_jobs"`
	LastSuccessful   []VendorLastSuccess  `json:"last_successful_scrapes"`
}
