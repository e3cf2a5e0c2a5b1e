package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"partshub-catalog/internal/storage"
	"partshub-catalog/internal/storage/memory"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

func rawRecord(part, name string) models.RawRecord {
	return models.RawRecord{
		VendorName:  "Acme Industrial",
		PartNumber:  part,
		ProductName: name,
		Category:    "Widgets",
		SourceURL:   "https://www.acme.example/p/" + part,
	}
}

func TestValidateAndPersistInsertsNewRecords(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	raws := []models.RawRecord{
		rawRecord("wa-100", "Widget A"),
		rawRecord("WB-200", "Widget B"),
	}

	result, err := p.ValidateAndPersist(context.Background(), raws)
	if err != nil {
		t.Fatalf("ValidateAndPersist() error = %v", err)
	}

	if result.Saved != 2 || result.Updated != 0 || result.Rejected != 0 {
		t.Errorf("result = saved %d updated %d rejected %d, want 2/0/0",
			result.Saved, result.Updated, result.Rejected)
	}

	entries, err := store.ListByVendor(context.Background(), "Acme Industrial", models.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListByVendor() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("store holds %d entries, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.PartNumber != "WA-100" && entry.PartNumber != "WB-200" {
			t.Errorf("PartNumber = %q, want normalized upper case", entry.PartNumber)
		}
	}
}

func TestValidateAndPersistIsIdempotent(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	raws := []models.RawRecord{rawRecord("WA-100", "Widget A")}

	if _, err := p.ValidateAndPersist(context.Background(), raws); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	result, err := p.ValidateAndPersist(context.Background(), raws)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if result.Saved != 0 || result.Updated != 0 {
		t.Errorf("second run = saved %d updated %d, want no-op", result.Saved, result.Updated)
	}
}

func TestValidateAndPersistDedupKeyIgnoresPartCase(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	if _, err := p.ValidateAndPersist(context.Background(),
		[]models.RawRecord{rawRecord("ab-12", "Widget AB")}); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	result, err := p.ValidateAndPersist(context.Background(),
		[]models.RawRecord{rawRecord("AB-12", "Widget AB")})
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if result.Saved != 0 {
		t.Errorf("saved = %d, want 0: ab-12 and AB-12 are the same part", result.Saved)
	}

	entries, _ := store.ListByVendor(context.Background(), "Acme Industrial", models.CatalogFilter{})
	if len(entries) != 1 {
		t.Errorf("store holds %d entries, want 1", len(entries))
	}
}

func TestValidateAndPersistUpdatesChangedRecords(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	if _, err := p.ValidateAndPersist(context.Background(),
		[]models.RawRecord{rawRecord("WA-100", "Widget A")}); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	changed := rawRecord("WA-100", "Widget A Mk II")
	changed.Specifications = map[string]string{"Weight": "2.5 kg"}

	result, err := p.ValidateAndPersist(context.Background(), []models.RawRecord{changed})
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if result.Saved != 0 || result.Updated != 1 {
		t.Errorf("result = saved %d updated %d, want 0/1", result.Saved, result.Updated)
	}

	entries, _ := store.ListByVendor(context.Background(), "Acme Industrial", models.CatalogFilter{})
	if len(entries) != 1 {
		t.Fatalf("store holds %d entries, want 1", len(entries))
	}
	if entries[0].ProductName != "Widget A Mk II" {
		t.Errorf("ProductName = %q, want updated name", entries[0].ProductName)
	}
	if entries[0].Specifications["Weight"] != "2.5 kg" {
		t.Errorf("Specifications = %v, want updated specs", entries[0].Specifications)
	}
}

func TestValidateAndPersistRejectsInvalidRecordsInIsolation(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	raws := []models.RawRecord{
		rawRecord("WA-100", "Widget A"),
		rawRecord("X", "Widget Short Part"), // part number below minimum length
		rawRecord("WB-200", "Widget B"),
		rawRecord("WC-300", "AB"), // product name below minimum length
	}

	result, err := p.ValidateAndPersist(context.Background(), raws)
	if err != nil {
		t.Fatalf("ValidateAndPersist() error = %v", err)
	}

	if result.Saved != 2 {
		t.Errorf("saved = %d, want 2", result.Saved)
	}
	if result.Rejected != 2 {
		t.Errorf("rejected = %d, want 2", result.Rejected)
	}
	if len(result.RejectedSamples) != 2 {
		t.Fatalf("captured %d samples, want 2", len(result.RejectedSamples))
	}
	if result.RejectedSamples[0].Index != 1 || result.RejectedSamples[1].Index != 3 {
		t.Errorf("sample indexes = %d, %d, want 1 and 3",
			result.RejectedSamples[0].Index, result.RejectedSamples[1].Index)
	}
	if result.RejectedSamples[0].Reason == "" {
		t.Error("rejected sample has no reason")
	}
	if !strings.Contains(result.RejectedSamples[0].Reason, "record validation failed") {
		t.Errorf("Reason = %q, want a validation error", result.RejectedSamples[0].Reason)
	}
}

// commitFailStore wraps the in-memory store with a batch whose Commit always
// fails, standing in for a dropped database connection.
type commitFailStore struct {
	inner     *memory.CatalogStore
	rollbacks int
}

func (s *commitFailStore) BeginBatch(ctx context.Context) (storage.CatalogBatch, error) {
	batch, err := s.inner.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	return &commitFailBatch{CatalogBatch: batch, store: s}, nil
}

func (s *commitFailStore) ListByVendor(ctx context.Context, vendorName string, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	return s.inner.ListByVendor(ctx, vendorName, filter)
}

func (s *commitFailStore) CountByVendor(ctx context.Context) ([]models.VendorProductCount, error) {
	return s.inner.CountByVendor(ctx)
}

type commitFailBatch struct {
	storage.CatalogBatch
	store *commitFailStore
}

func (b *commitFailBatch) Commit(ctx context.Context) error {
	return errors.New("connection reset by peer")
}

func (b *commitFailBatch) Rollback(ctx context.Context) error {
	b.store.rollbacks++
	return b.CatalogBatch.Rollback(ctx)
}

func TestValidateAndPersistCommitFailureRollsBack(t *testing.T) {
	store := &commitFailStore{inner: memory.NewCatalogStore()}
	p := New(store)

	raws := []models.RawRecord{
		rawRecord("WA-100", "Widget A"),
		rawRecord("WB-200", "Widget B"),
	}

	result, err := p.ValidateAndPersist(context.Background(), raws)
	if err == nil {
		t.Fatal("ValidateAndPersist() error = nil, want commit failure")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on commit failure", result)
	}
	if kind := utils.KindOf(err); kind != utils.KindPersistence {
		t.Errorf("error kind = %q, want persistence", kind)
	}
	if store.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", store.rollbacks)
	}

	entries, err := store.inner.ListByVendor(context.Background(), "Acme Industrial", models.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListByVendor() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("store holds %d entries after failed commit, want 0", len(entries))
	}
}

func TestValidateAndPersistCapsRejectedSamples(t *testing.T) {
	store := memory.NewCatalogStore()
	p := New(store)

	raws := make([]models.RawRecord, 0, 15)
	for i := 0; i < 15; i++ {
		raws = append(raws, rawRecord("", fmt.Sprintf("Nameless Widget %d", i)))
	}

	result, err := p.ValidateAndPersist(context.Background(), raws)
	if err != nil {
		t.Fatalf("ValidateAndPersist() error = %v", err)
	}

	if result.Rejected != 15 {
		t.Errorf("rejected = %d, want 15", result.Rejected)
	}
	if len(result.RejectedSamples) != maxRejectedSamples {
		t.Errorf("captured %d samples, want cap of %d", len(result.RejectedSamples), maxRejectedSamples)
	}
}
