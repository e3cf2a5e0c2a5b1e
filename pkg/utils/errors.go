package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for retry decisions
type ErrorKind string

const (
	// KindConfig: bad or missing vendor config. Fatal, the job never starts.
	KindConfig ErrorKind = "config"
	// KindExtraction: selector, timeout or navigation failure. Retried up to
	// the attempt ceiling.
	KindExtraction ErrorKind = "extraction"
	// KindValidation: a single malformed record. Recovered locally, recorded
	// as a rejection, the batch continues.
	KindValidation ErrorKind = "validation"
	// KindPersistence: transaction failure. Aborts the whole batch, retried.
	KindPersistence ErrorKind = "persistence"
)

// CrawlError is the typed application error carried across the pipeline
type CrawlError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Cause   error     `json:"-"`
}

func (e *CrawlError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// Common error constructors

func NewConfigError(detail string) *CrawlError {
	return &CrawlError{Kind: KindConfig, Message: "invalid scraper configuration", Detail: detail}
}

func NewExtractionError(detail string, cause error) *CrawlError {
	return &CrawlError{Kind: KindExtraction, Message: "extraction failed", Detail: detail, Cause: cause}
}

func NewValidationError(detail string) *CrawlError {
	return &CrawlError{Kind: KindValidation, Message: "record validation failed", Detail: detail}
}

func NewPersistenceError(detail string, cause error) *CrawlError {
	return &CrawlError{Kind: KindPersistence, Message: "persistence failed", Detail: detail, Cause: cause}
}

// ErrUnknownVendor is returned when no vendor config exists for an id
var ErrUnknownVendor = errors.New("unknown vendor id")

// KindOf returns the error kind, defaulting to extraction for untyped errors
// so that unexpected engine failures stay on the retryable path.
func KindOf(err error) ErrorKind {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindExtraction
}

// IsRetryable reports whether the scheduler should re-enqueue after this error
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUnknownVendor) {
		return false
	}
	return KindOf(err) != KindConfig
}
