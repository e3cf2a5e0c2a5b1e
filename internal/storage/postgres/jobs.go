package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
)

// JobRepo implements storage.JobStore over PostgreSQL
type JobRepo struct {
	db *pgxpool.Pool
}

// NewJobRepo creates a job repository over the given pool
func NewJobRepo(db *pgxpool.Pool) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = `id, vendor_id, status, attempt, records_extracted, records_saved,
	records_updated, records_rejected, started_at, completed_at, error_message, created_at`

// CreateJob inserts a queued job for a vendor
func (r *JobRepo) CreateJob(ctx context.Context, vendorID string, attempt int) (*models.ScraperJob, error) {
	job := &models.ScraperJob{
		VendorID:  vendorID,
		Status:    models.JobStatusQueued,
		Attempt:   attempt,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO scraper_jobs (vendor_id, status, attempt, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		job.VendorID, job.Status, job.Attempt, job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// MarkRunning moves a queued job to running. The status guard keeps the
// transition one-directional even if a stale worker retries it.
func (r *JobRepo) MarkRunning(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE scraper_jobs SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4`,
		id, models.JobStatusRunning, time.Now().UTC(), models.JobStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %d running: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d is not queued", id)
	}
	return nil
}

// MarkCompleted moves a running job to completed with its counters
func (r *JobRepo) MarkCompleted(ctx context.Context, id int64, counts storage.JobCounts) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE scraper_jobs SET
			status = $2,
			records_extracted = $3,
			records_saved = $4,
			records_updated = $5,
			records_rejected = $6,
			completed_at = $7
		WHERE id = $1 AND status = $8`,
		id, models.JobStatusCompleted,
		counts.Extracted, counts.Saved, counts.Updated, counts.Rejected,
		time.Now().UTC(), models.JobStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %d completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d is not running", id)
	}
	return nil
}

// MarkFailed moves a job to failed. Both queued and running jobs can fail;
// a job that never started still needs a terminal state.
func (r *JobRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE scraper_jobs SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1 AND status IN ($5, $6)`,
		id, models.JobStatusFailed, errMsg, time.Now().UTC(),
		models.JobStatusQueued, models.JobStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %d failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d is already terminal", id)
	}
	return nil
}

// GetJob returns one job by id
func (r *JobRepo) GetJob(ctx context.Context, id int64) (*models.ScraperJob, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM scraper_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns jobs newest first, narrowed by the filter
func (r *JobRepo) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.ScraperJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scraper_jobs WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.VendorID != "" {
		args = append(args, filter.VendorID)
		query += fmt.Sprintf(" AND vendor_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScraperJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RecentOutcomes returns terminal job counts per vendor since the given time
func (r *JobRepo) RecentOutcomes(ctx context.Context, since time.Time) ([]models.JobOutcomeCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT vendor_id, status, COUNT(*)
		FROM scraper_jobs
		WHERE created_at >= $1 AND status IN ($2, $3)
		GROUP BY vendor_id, status
		ORDER BY vendor_id, status`,
		since, models.JobStatusCompleted, models.JobStatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query job outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.JobOutcomeCount
	for rows.Next() {
		var o models.JobOutcomeCount
		if err := rows.Scan(&o.VendorID, &o.Status, &o.Count); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// LastSuccessful returns the most recent completed job per vendor
func (r *JobRepo) LastSuccessful(ctx context.Context) ([]models.VendorLastSuccess, error) {
	rows, err := r.db.Query(ctx, `
		SELECT vendor_id, MAX(completed_at)
		FROM scraper_jobs
		WHERE status = $1
		GROUP BY vendor_id
		ORDER BY vendor_id`,
		models.JobStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful jobs: %w", err)
	}
	defer rows.Close()

	var results []models.VendorLastSuccess
	for rows.Next() {
		var v models.VendorLastSuccess
		if err := rows.Scan(&v.VendorID, &v.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

func scanJob(row pgx.Row) (*models.ScraperJob, error) {
	var job models.ScraperJob
	err := row.Scan(
		&job.ID, &job.VendorID, &job.Status, &job.Attempt,
		&job.RecordsExtracted, &job.RecordsSaved, &job.RecordsUpdated, &job.RecordsRejected,
		&job.StartedAt, &job.CompletedAt, &job.ErrorMessage, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
