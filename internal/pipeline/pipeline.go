package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

// maxRejectedSamples caps the rejected records echoed back in the result
const maxRejectedSamples = 10

// RejectedRecord is one validation failure with enough context to debug the
// vendor's selectors.
type RejectedRecord struct {
	Index  int              `json:"index"`
	Reason string           `json:"reason"`
	Record models.RawRecord `json:"record"`
}

// Result summarizes one pipeline run
type Result struct {
	Saved           int
	Updated         int
	Rejected        int
	RejectedSamples []RejectedRecord
}

// Pipeline validates raw records and persists them with cross-run
// deduplication. All writes of a run land in one batch: either the whole run
// commits or none of it does.
type Pipeline struct {
	store    storage.CatalogStore
	validate *validator.Validate
	logger   logging.Logger
}

// New creates a pipeline over the given catalog store
func New(store storage.CatalogStore) *Pipeline {
	return &Pipeline{
		store:    store,
		validate: validator.New(),
		logger:   logging.GetGlobalLogger(),
	}
}

// ValidateAndPersist normalizes, validates and persists a crawl's raw
// records. A record that fails validation is rejected without touching the
// rest of the batch.
func (p *Pipeline) ValidateAndPersist(ctx context.Context, raws []models.RawRecord) (*Result, error) {
	batch, err := p.store.BeginBatch(ctx)
	if err != nil {
		return nil, utils.NewPersistenceError("failed to open catalog batch", err)
	}

	result := &Result{}

	for i := range raws {
		record, verr := p.validateRecord(&raws[i])
		if verr != nil {
			result.Rejected++
			if len(result.RejectedSamples) < maxRejectedSamples {
				result.RejectedSamples = append(result.RejectedSamples, RejectedRecord{
					Index:  i,
					Reason: verr.Error(),
					Record: raws[i],
				})
			}
			continue
		}

		op, err := p.persistRecord(ctx, batch, record)
		if err != nil {
			_ = batch.Rollback(ctx)
			return nil, utils.NewPersistenceError("failed to persist record "+record.PartNumber, err)
		}

		switch op {
		case opInsert:
			result.Saved++
		case opUpdate:
			result.Updated++
		}
	}

	if err := batch.Commit(ctx); err != nil {
		_ = batch.Rollback(ctx)
		return nil, utils.NewPersistenceError("failed to commit catalog batch", err)
	}

	if result.Rejected > 0 {
		p.logger.Warn("Pipeline rejected records", map[string]interface{}{
			"rejected": result.Rejected,
			"total":    len(raws),
		})
	}

	return result, nil
}

type persistOp int

const (
	opNone persistOp = iota
	opInsert
	opUpdate
)

// validateRecord normalizes a raw record and runs the validation rules
func (p *Pipeline) validateRecord(raw *models.RawRecord) (*models.ValidatedRecord, error) {
	record := &models.ValidatedRecord{
		VendorName:     strings.TrimSpace(raw.VendorName),
		PartNumber:     strings.ToUpper(strings.TrimSpace(raw.PartNumber)),
		ProductName:    strings.TrimSpace(raw.ProductName),
		Category:       strings.TrimSpace(raw.Category),
		ImageURLs:      raw.ImageURLs,
		DocumentURLs:   raw.DocumentURLs,
		Specifications: raw.Specifications,
		SourceURL:      raw.SourceURL,
	}

	if record.ImageURLs == nil {
		record.ImageURLs = []string{}
	}
	if record.DocumentURLs == nil {
		record.DocumentURLs = []string{}
	}
	if record.Specifications == nil {
		record.Specifications = map[string]string{}
	}

	if err := p.validate.Struct(record); err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	return record, nil
}

// persistRecord applies one validated record to the batch: insert when the
// dedup key is new, update when the stored entry drifted, no-op otherwise.
func (p *Pipeline) persistRecord(ctx context.Context, batch storage.CatalogBatch, record *models.ValidatedRecord) (persistOp, error) {
	key := record.DedupKey()

	existing, err := batch.GetByDedupKey(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return opNone, err
		}

		return opInsert, batch.Insert(ctx, &models.CatalogEntry{
			DedupKey:       key,
			VendorName:     record.VendorName,
			PartNumber:     record.PartNumber,
			ProductName:    record.ProductName,
			Category:       record.Category,
			ImageURLs:      record.ImageURLs,
			DocumentURLs:   record.DocumentURLs,
			Specifications: record.Specifications,
			SourceURL:      record.SourceURL,
		})
	}

	if !entryChanged(existing, record) {
		return opNone, nil
	}

	existing.ProductName = record.ProductName
	existing.Category = record.Category
	existing.ImageURLs = record.ImageURLs
	existing.DocumentURLs = record.DocumentURLs
	existing.Specifications = record.Specifications
	existing.SourceURL = record.SourceURL

	return opUpdate, batch.Update(ctx, existing)
}

// entryChanged reports whether the stored entry differs from the fresh record
// on any mutable field.
func entryChanged(existing *models.CatalogEntry, record *models.ValidatedRecord) bool {
	return existing.ProductName != record.ProductName ||
		existing.Category != record.Category ||
		existing.SourceURL != record.SourceURL ||
		!reflect.DeepEqual(existing.ImageURLs, record.ImageURLs) ||
		!reflect.DeepEqual(existing.DocumentURLs, record.DocumentURLs) ||
		!reflect.DeepEqual(existing.Specifications, record.Specifications)
}
