package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"partshub-catalog/internal/config"
)

// Connect opens a pgx pool against the configured database and verifies it
// with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Schema is the DDL for the catalog tables, applied at startup
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id             BIGSERIAL PRIMARY KEY,
	dedup_key      TEXT NOT NULL UNIQUE,
	vendor_name    TEXT NOT NULL,
	part_number    TEXT NOT NULL,
	product_name   TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	image_urls     JSONB,
	document_urls  JSONB,
	specifications JSONB,
	source_url     TEXT NOT NULL DEFAULT '',
	first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_catalog_vendor ON catalog_entries (vendor_name);
CREATE INDEX IF NOT EXISTS idx_catalog_category ON catalog_entries (vendor_name, category);

CREATE TABLE IF NOT EXISTS scraper_jobs (
	id                BIGSERIAL PRIMARY KEY,
	vendor_id         TEXT NOT NULL,
	status            TEXT NOT NULL,
	attempt           INT NOT NULL DEFAULT 1,
	records_extracted INT NOT NULL DEFAULT 0,
	records_saved     INT NOT NULL DEFAULT 0,
	records_updated   INT NOT NULL DEFAULT 0,
	records_rejected  INT NOT NULL DEFAULT 0,
	started_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_jobs_vendor ON scraper_jobs (vendor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON scraper_jobs (status);
`

// EnsureSchema creates the tables if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
