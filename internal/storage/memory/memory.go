package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
)

// CatalogStore is an in-memory storage.CatalogStore. It backs local
// development when no DATABASE_URL is configured and the pipeline tests.
type CatalogStore struct {
	mu      sync.Mutex
	entries map[string]*models.CatalogEntry
	nextID  int64
}

// NewCatalogStore creates an empty in-memory catalog store
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{entries: make(map[string]*models.CatalogEntry), nextID: 1}
}

// BeginBatch opens a write batch. Staged writes apply on Commit under the
// store lock, so a run that rolls back leaves the catalog untouched.
func (s *CatalogStore) BeginBatch(ctx context.Context) (storage.CatalogBatch, error) {
	return &catalogBatch{store: s, staged: make(map[string]*models.CatalogEntry)}, nil
}

// ListByVendor returns catalog entries for a vendor, newest first
func (s *CatalogStore) ListByVendor(ctx context.Context, vendorName string, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.CatalogEntry
	for _, entry := range s.entries {
		if entry.VendorName != vendorName {
			continue
		}
		if filter.Category != "" && entry.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(entry.ProductName), needle) &&
				!strings.Contains(strings.ToLower(entry.PartNumber), needle) {
				continue
			}
		}
		clone := *entry
		entries = append(entries, &clone)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeenAt.After(entries[j].LastSeenAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[filter.Offset:]
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// CountByVendor returns the product count per vendor
func (s *CatalogStore) CountByVendor(ctx context.Context) ([]models.VendorProductCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byVendor := make(map[string]int64)
	for _, entry := range s.entries {
		byVendor[entry.VendorName]++
	}

	counts := make([]models.VendorProductCount, 0, len(byVendor))
	for vendor, count := range byVendor {
		counts = append(counts, models.VendorProductCount{Vendor: vendor, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Vendor < counts[j].Vendor })

	return counts, nil
}

type catalogBatch struct {
	store  *CatalogStore
	staged map[string]*models.CatalogEntry
	done   bool
}

func (b *catalogBatch) GetByDedupKey(ctx context.Context, key string) (*models.CatalogEntry, error) {
	if entry, ok := b.staged[key]; ok {
		clone := *entry
		return &clone, nil
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	entry, ok := b.store.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (b *catalogBatch) Insert(ctx context.Context, entry *models.CatalogEntry) error {
	now := time.Now().UTC()
	entry.FirstSeenAt = now
	entry.LastSeenAt = now

	clone := *entry
	b.staged[entry.DedupKey] = &clone
	return nil
}

func (b *catalogBatch) Update(ctx context.Context, entry *models.CatalogEntry) error {
	entry.LastSeenAt = time.Now().UTC()

	clone := *entry
	b.staged[entry.DedupKey] = &clone
	return nil
}

func (b *catalogBatch) Commit(ctx context.Context) error {
	if b.done {
		return fmt.Errorf("batch already finished")
	}
	b.done = true

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for key, staged := range b.staged {
		if existing, ok := b.store.entries[key]; ok {
			staged.ID = existing.ID
			staged.FirstSeenAt = existing.FirstSeenAt
		} else {
			staged.ID = b.store.nextID
			b.store.nextID++
		}
		b.store.entries[key] = staged
	}
	return nil
}

func (b *catalogBatch) Rollback(ctx context.Context) error {
	b.done = true
	b.staged = nil
	return nil
}
