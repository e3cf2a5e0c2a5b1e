package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ExtractionMethod selects the strategy used to pull data from a vendor site
type ExtractionMethod string

const (
	// MethodHTTP fetches each entry URL once and parses static markup. An
	// order of magnitude cheaper than the browser, at the cost of missing
	// anything rendered by JavaScript.
	MethodHTTP ExtractionMethod = "http"
	// MethodBrowser drives one headless browser session per job, reused
	// across every listing page and detail visit.
	MethodBrowser ExtractionMethod = "browser"
)

// SelectorSet maps semantic roles to CSS selectors for one vendor. Roles are
// explicit struct fields, not a free-form map, so the engine never does
// string-keyed lookups for a role it does not know about.
type SelectorSet struct {
	ProductCard     string `yaml:"product_card" validate:"required"`
	ProductName     string `yaml:"product_name" validate:"required"`
	PartNumber      string `yaml:"part_number" validate:"required"`
	Category        string `yaml:"category"`
	Image           string `yaml:"image"`
	PaginationNext  string `yaml:"pagination_next"`
	DetailSpecTable string `yaml:"detail_spec_table"`
	DetailPDFLink   string `yaml:"detail_pdf_link"`
}

// VendorConfig is the static description of how to crawl one vendor.
// Loaded once at startup and immutable for the process lifetime; changing a
// vendor requires a restart.
type VendorConfig struct {
	ID              string           `yaml:"id" validate:"required"`
	VendorName      string           `yaml:"vendor_name" validate:"required"`
	BaseURL         string           `yaml:"base_url" validate:"required,url,startswith=https://"`
	EntryURLs       []string         `yaml:"entry_urls" validate:"required,min=1,dive,url"`
	Method          ExtractionMethod `yaml:"method" validate:"required,oneof=http browser"`
	Selectors       SelectorSet      `yaml:"selectors"`
	MaxPages        int              `yaml:"max_pages"`
	VisitChildPages bool             `yaml:"visit_child_pages"`
	PageTimeout     time.Duration    `yaml:"page_timeout"`
	MaxRecords      int              `yaml:"max_records"`
	Schedule        string           `yaml:"schedule"`
}

type vendorsFile struct {
	Vendors []*VendorConfig `yaml:"vendors"`
}

// VendorRegistry holds the validated vendor configs keyed by id
type VendorRegistry struct {
	vendors map[string]*VendorConfig
	order   []string
}

var vendorValidate = validator.New()

// LoadVendors reads and validates the vendor configuration document.
// Any invalid record fails the whole load: a worker must not start with a
// partially trusted config set.
func LoadVendors(path string) (*VendorRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor config %s: %w", path, err)
	}

	var file vendorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vendor config %s: %w", path, err)
	}

	if len(file.Vendors) == 0 {
		return nil, fmt.Errorf("vendor config %s contains no vendors", path)
	}

	registry := &VendorRegistry{vendors: make(map[string]*VendorConfig, len(file.Vendors))}

	for _, vendor := range file.Vendors {
		vendor.applyDefaults()

		if err := vendorValidate.Struct(vendor); err != nil {
			return nil, fmt.Errorf("vendor %q failed validation: %w", vendor.ID, err)
		}

		if vendor.Schedule != "" {
			if _, err := cron.ParseStandard(vendor.Schedule); err != nil {
				return nil, fmt.Errorf("vendor %q has invalid cron schedule %q: %w", vendor.ID, vendor.Schedule, err)
			}
		}

		if _, exists := registry.vendors[vendor.ID]; exists {
			return nil, fmt.Errorf("duplicate vendor id %q", vendor.ID)
		}

		registry.vendors[vendor.ID] = vendor
		registry.order = append(registry.order, vendor.ID)
	}

	return registry, nil
}

func (v *VendorConfig) applyDefaults() {
	if v.MaxPages <= 0 {
		v.MaxPages = 5
	}
	if v.PageTimeout <= 0 {
		v.PageTimeout = 30 * time.Second
	}
	if v.MaxRecords <= 0 {
		v.MaxRecords = 2000
	}
}

// Get returns the config for a vendor id
func (r *VendorRegistry) Get(id string) (*VendorConfig, bool) {
	vendor, ok := r.vendors[id]
	return vendor, ok
}

// All returns the configs in the order they were declared
func (r *VendorRegistry) All() []*VendorConfig {
	all := make([]*VendorConfig, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.vendors[id])
	}
	return all
}

// Len returns the number of registered vendors
func (r *VendorRegistry) Len() int {
	return len(r.vendors)
}
