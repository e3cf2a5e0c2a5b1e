package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
)

// JobStore is an in-memory storage.JobStore
type JobStore struct {
	mu     sync.Mutex
	jobs   map[int64]*models.ScraperJob
	nextID int64
}

// NewJobStore creates an empty in-memory job store
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[int64]*models.ScraperJob), nextID: 1}
}

// CreateJob inserts a queued job for a vendor
func (s *JobStore) CreateJob(ctx context.Context, vendorID string, attempt int) (*models.ScraperJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &models.ScraperJob{
		ID:        s.nextID,
		VendorID:  vendorID,
		Status:    models.JobStatusQueued,
		Attempt:   attempt,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.jobs[job.ID] = job

	clone := *job
	return &clone, nil
}

// MarkRunning moves a queued job to running
func (s *JobStore) MarkRunning(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != models.JobStatusQueued {
		return fmt.Errorf("job %d is not queued", id)
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	return nil
}

// MarkCompleted moves a running job to completed with its counters
func (s *JobStore) MarkCompleted(ctx context.Context, id int64, counts storage.JobCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status != models.JobStatusRunning {
		return fmt.Errorf("job %d is not running", id)
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.RecordsExtracted = counts.Extracted
	job.RecordsSaved = counts.Saved
	job.RecordsUpdated = counts.Updated
	job.RecordsRejected = counts.Rejected
	job.CompletedAt = &now
	return nil
}

// MarkFailed moves a queued or running job to failed
func (s *JobStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("job %d is already terminal", id)
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = errMsg
	job.CompletedAt = &now
	return nil
}

// GetJob returns one job by id
func (s *JobStore) GetJob(ctx context.Context, id int64) (*models.ScraperJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

// ListJobs returns jobs newest first, narrowed by the filter
func (s *JobStore) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.ScraperJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*models.ScraperJob
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.VendorID != "" && job.VendorID != filter.VendorID {
			continue
		}
		clone := *job
		jobs = append(jobs, &clone)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[filter.Offset:]
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

// RecentOutcomes returns terminal job counts per vendor since the given time
func (s *JobStore) RecentOutcomes(ctx context.Context, since time.Time) ([]models.JobOutcomeCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type bucket struct {
		vendorID string
		status   models.JobStatus
	}
	byBucket := make(map[bucket]int64)
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() || job.CreatedAt.Before(since) {
			continue
		}
		byBucket[bucket{job.VendorID, job.Status}]++
	}

	outcomes := make([]models.JobOutcomeCount, 0, len(byBucket))
	for b, count := range byBucket {
		outcomes = append(outcomes, models.JobOutcomeCount{VendorID: b.vendorID, Status: b.status, Count: count})
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].VendorID == outcomes[j].VendorID {
			return outcomes[i].Status < outcomes[j].Status
		}
		return outcomes[i].VendorID < outcomes[j].VendorID
	})

	return outcomes, nil
}

// LastSuccessful returns the most recent completed job per vendor
func (s *JobStore) LastSuccessful(ctx context.Context) ([]models.VendorLastSuccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[string]time.Time)
	for _, job := range s.jobs {
		if job.Status != models.JobStatusCompleted || job.CompletedAt == nil {
			continue
		}
		if current, ok := latest[job.VendorID]; !ok || job.CompletedAt.After(current) {
			latest[job.VendorID] = *job.CompletedAt
		}
	}

	results := make([]models.VendorLastSuccess, 0, len(latest))
	for vendorID, completedAt := range latest {
		results = append(results, models.VendorLastSuccess{VendorID: vendorID, CompletedAt: completedAt})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].VendorID < results[j].VendorID })

	return results, nil
}
