package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
)

// CatalogRepo implements storage.CatalogStore over PostgreSQL
type CatalogRepo struct {
	db *pgxpool.Pool
}

// NewCatalogRepo creates a catalog repository over the given pool
func NewCatalogRepo(db *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const catalogColumns = `id, dedup_key, vendor_name, part_number, product_name, category,
	image_urls, document_urls, specifications, source_url, first_seen_at, last_seen_at`

// BeginBatch opens a transaction-backed write batch
func (r *CatalogRepo) BeginBatch(ctx context.Context) (storage.CatalogBatch, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog batch: %w", err)
	}
	return &catalogBatch{tx: tx}, nil
}

// ListByVendor returns catalog entries for a vendor, newest first
func (r *CatalogRepo) ListByVendor(ctx context.Context, vendorName string, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE vendor_name = $1`
	args := []interface{}{vendorName}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (product_name ILIKE $%d OR part_number ILIKE $%d)", len(args), len(args))
	}

	query += " ORDER BY last_seen_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountByVendor returns the product count per vendor
func (r *CatalogRepo) CountByVendor(ctx context.Context) ([]models.VendorProductCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT vendor_name, COUNT(*) FROM catalog_entries GROUP BY vendor_name ORDER BY vendor_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	defer rows.Close()

	var counts []models.VendorProductCount
	for rows.Next() {
		var c models.VendorProductCount
		if err := rows.Scan(&c.Vendor, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type catalogBatch struct {
	tx pgx.Tx
}

func (b *catalogBatch) GetByDedupKey(ctx context.Context, key string) (*models.CatalogEntry, error) {
	row := b.tx.QueryRow(ctx,
		`SELECT `+catalogColumns+` FROM catalog_entries WHERE dedup_key = $1`, key)

	entry, err := scanCatalogEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (b *catalogBatch) Insert(ctx context.Context, entry *models.CatalogEntry) error {
	images, docs, specs, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry.FirstSeenAt = now
	entry.LastSeenAt = now

	return b.tx.QueryRow(ctx, `
		INSERT INTO catalog_entries
			(dedup_key, vendor_name, part_number, product_name, category,
			 image_urls, document_urls, specifications, source_url, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		entry.DedupKey, entry.VendorName, entry.PartNumber, entry.ProductName, entry.Category,
		images, docs, specs, entry.SourceURL, entry.FirstSeenAt, entry.LastSeenAt,
	).Scan(&entry.ID)
}

func (b *catalogBatch) Update(ctx context.Context, entry *models.CatalogEntry) error {
	images, docs, specs, err := marshalEntryJSON(entry)
	if err != nil {
		return err
	}

	entry.LastSeenAt = time.Now().UTC()

	_, err = b.tx.Exec(ctx, `
		UPDATE catalog_entries SET
			product_name = $2,
			category = $3,
			image_urls = $4,
			document_urls = $5,
			specifications = $6,
			source_url = $7,
			last_seen_at = $8
		WHERE dedup_key = $1`,
		entry.DedupKey, entry.ProductName, entry.Category,
		images, docs, specs, entry.SourceURL, entry.LastSeenAt,
	)
	return err
}

func (b *catalogBatch) Commit(ctx context.Context) error {
	return b.tx.Commit(ctx)
}

func (b *catalogBatch) Rollback(ctx context.Context) error {
	return b.tx.Rollback(ctx)
}

func marshalEntryJSON(entry *models.CatalogEntry) (images, docs, specs []byte, err error) {
	if images, err = json.Marshal(entry.ImageURLs); err != nil {
		return nil, nil, nil, err
	}
	if docs, err = json.Marshal(entry.DocumentURLs); err != nil {
		return nil, nil, nil, err
	}
	if specs, err = json.Marshal(entry.Specifications); err != nil {
		return nil, nil, nil, err
	}
	return images, docs, specs, nil
}

func scanCatalogEntry(row pgx.Row) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	var images, docs, specs []byte

	err := row.Scan(
		&entry.ID, &entry.DedupKey, &entry.VendorName, &entry.PartNumber,
		&entry.ProductName, &entry.Category, &images, &docs, &specs,
		&entry.SourceURL, &entry.FirstSeenAt, &entry.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := json.Unmarshal(images, &entry.ImageURLs); err != nil {
			return nil, err
		}
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &entry.DocumentURLs); err != nil {
			return nil, err
		}
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &entry.Specifications); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}
