package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// RawRecord is a product candidate as extracted from vendor markup, before
// any validation or normalization. Every field may be dirty or empty.
type RawRecord struct {
	VendorName     string            `json:"vendor_name"`
	PartNumber     string            `json:"part_number"`
	ProductName    string            `json:"product_name"`
	Category       string            `json:"category"`
	ImageURLs      []string          `json:"image_urls,omitempty"`
	DocumentURLs   []string          `json:"document_urls,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	SourceURL      string            `json:"source_url"`
}

// ValidatedRecord is a raw record that passed normalization and validation.
// PartNumber is upper-cased and trimmed; ProductName is trimmed.
type ValidatedRecord struct {
	VendorName     string            `json:"vendor_name" validate:"required"`
	PartNumber     string            `json:"part_number" validate:"required,min=2"`
	ProductName    string            `json:"product_name" validate:"required,min=3"`
	Category       string            `json:"category"`
	ImageURLs      []string          `json:"image_urls,omitempty"`
	DocumentURLs   []string          `json:"document_urls,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	SourceURL      string            `json:"source_url"`
}

// DedupKey derives the stable identity for a record: the MD5 of a canonical
// JSON document over the normalized part number and vendor name, keys in
// sorted order. The same part from the same vendor always hashes the same
// regardless of how the rest of the record changes.
func (r *ValidatedRecord) DedupKey() string {
	payload, _ := json.Marshal(struct {
		Part   string `json:"part"`
		Vendor string `json:"vendor"`
	}{Part: r.PartNumber, Vendor: r.VendorName})
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// CatalogEntry is a persisted catalog row
type CatalogEntry struct {
	ID             int64             `json:"id"`
	DedupKey       string            `json:"-"`
	VendorName     string            `json:"vendor_name"`
	PartNumber     string            `json:"part_number"`
	ProductName    string            `json:"product_name"`
	Category       string            `json:"category"`
	ImageURLs      []string          `json:"image_urls,omitempty"`
	DocumentURLs   []string          `json:"document_urls,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	SourceURL      string            `json:"source_url"`
	FirstSeenAt    time.Time         `json:"first_seen_at"`
	LastSeenAt     time.Time         `json:"last_seen_at"`
}
