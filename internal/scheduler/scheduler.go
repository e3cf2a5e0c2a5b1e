package scheduler

import (
	"context"
	"sync"
	"time"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/logging"
	"partshub-catalog/internal/metrics"
	"partshub-catalog/internal/pipeline"
	"partshub-catalog/internal/scraper"
	"partshub-catalog/internal/storage"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

// Runner executes one crawl for a vendor
type Runner interface {
	Run(ctx context.Context, vendor *config.VendorConfig) (*scraper.Result, error)
}

// Persister validates and stores a crawl's raw records
type Persister interface {
	ValidateAndPersist(ctx context.Context, raws []models.RawRecord) (*pipeline.Result, error)
}

// Scheduler owns the job queue and the worker loop. WorkerCount is 1 in
// every deployment so far: one crawl at a time keeps a headless browser
// inside its memory budget, and the queue serializes the rest.
type Scheduler struct {
	cfg      *config.Config
	registry *config.VendorRegistry
	engine   Runner
	pipe     Persister
	jobs     storage.JobStore
	queue    Queue
	logger   logging.Logger

	wg   sync.WaitGroup
	stop chan struct{}
}

// New creates a scheduler
func New(cfg *config.Config, registry *config.VendorRegistry, engine Runner, pipe Persister, jobs storage.JobStore, queue Queue) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		engine:   engine,
		pipe:     pipe,
		jobs:     jobs,
		queue:    queue,
		logger:   logging.GetGlobalLogger(),
		stop:     make(chan struct{}),
	}
}

// Enqueue creates a queued job for a vendor and puts it on the queue
func (s *Scheduler) Enqueue(ctx context.Context, vendorID string) (*models.ScraperJob, error) {
	if _, ok := s.registry.Get(vendorID); !ok {
		return nil, utils.ErrUnknownVendor
	}

	return s.enqueueAttempt(ctx, vendorID, 1)
}

func (s *Scheduler) enqueueAttempt(ctx context.Context, vendorID string, attempt int) (*models.ScraperJob, error) {
	job, err := s.jobs.CreateJob(ctx, vendorID, attempt)
	if err != nil {
		return nil, err
	}

	item := QueueItem{JobID: job.ID, VendorID: vendorID, Attempt: attempt}
	if err := s.queue.Push(ctx, item); err != nil {
		// The job row exists but will never run; fail it so it does not sit
		// queued forever.
		_ = s.jobs.MarkFailed(ctx, job.ID, "failed to enqueue: "+err.Error())
		return nil, err
	}

	s.logger.Info("Job enqueued", map[string]interface{}{
		"job_id":    job.ID,
		"vendor_id": vendorID,
		"attempt":   attempt,
	})

	return job, nil
}

// Start launches the worker loop
func (s *Scheduler) Start(ctx context.Context) {
	workers := s.cfg.Scheduler.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx)
	}
}

// Stop signals the workers and waits for the in-flight job to finish
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		item, err := s.queue.Pop(ctx, s.cfg.Scheduler.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Failed to pop from job queue", map[string]interface{}{
				"error": err.Error(),
			})
			time.Sleep(s.cfg.Scheduler.PollInterval)
			continue
		}
		if item == nil {
			continue
		}

		s.runJob(ctx, item)
	}
}

// runJob executes one queued crawl end to end: claim, crawl, persist, and
// record the terminal state. Every exit path leaves the job terminal.
func (s *Scheduler) runJob(ctx context.Context, item *QueueItem) {
	vendor, ok := s.registry.Get(item.VendorID)
	if !ok {
		// Vendor was removed from the config after the job was queued
		_ = s.jobs.MarkFailed(ctx, item.JobID, "unknown vendor id "+item.VendorID)
		return
	}

	if err := s.jobs.MarkRunning(ctx, item.JobID); err != nil {
		s.logger.Error("Failed to claim job", map[string]interface{}{
			"job_id": item.JobID,
			"error":  err.Error(),
		})
		return
	}

	metrics.JobsRunning.Inc()
	started := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.JobTimeout)
	defer cancel()

	s.logger.Info("Job started", map[string]interface{}{
		"job_id":    item.JobID,
		"vendor_id": item.VendorID,
		"attempt":   item.Attempt,
	})

	counts, err := s.execute(jobCtx, vendor)

	metrics.JobsRunning.Dec()
	metrics.JobDuration.WithLabelValues(vendor.ID).Observe(time.Since(started).Seconds())

	if err != nil {
		s.finishFailed(ctx, item, err)
		return
	}

	if cerr := s.jobs.MarkCompleted(ctx, item.JobID, *counts); cerr != nil {
		s.logger.Error("Failed to mark job completed", map[string]interface{}{
			"job_id": item.JobID,
			"error":  cerr.Error(),
		})
		return
	}

	metrics.JobsTotal.WithLabelValues(vendor.ID, string(models.JobStatusCompleted)).Inc()

	s.logger.Info("Job completed", map[string]interface{}{
		"job_id":            item.JobID,
		"vendor_id":         item.VendorID,
		"records_extracted": counts.Extracted,
		"records_saved":     counts.Saved,
		"records_updated":   counts.Updated,
		"records_rejected":  counts.Rejected,
		"duration":          time.Since(started).String(),
	})
}

// execute runs the crawl and the pipeline for one vendor
func (s *Scheduler) execute(ctx context.Context, vendor *config.VendorConfig) (*storage.JobCounts, error) {
	crawl, err := s.engine.Run(ctx, vendor)
	if err != nil {
		return nil, err
	}

	metrics.RecordsExtracted.WithLabelValues(vendor.ID).Add(float64(len(crawl.Records)))
	metrics.PagesVisited.WithLabelValues(vendor.ID).Add(float64(crawl.PagesVisited))

	result, err := s.pipe.ValidateAndPersist(ctx, crawl.Records)
	if err != nil {
		return nil, err
	}

	metrics.RecordsSaved.WithLabelValues(vendor.ID).Add(float64(result.Saved))
	metrics.RecordsUpdated.WithLabelValues(vendor.ID).Add(float64(result.Updated))
	metrics.RecordsRejected.WithLabelValues(vendor.ID).Add(float64(result.Rejected))

	for _, sample := range result.RejectedSamples {
		s.logger.Warn("Record rejected", map[string]interface{}{
			"vendor_id":   vendor.ID,
			"index":       sample.Index,
			"reason":      sample.Reason,
			"part_number": sample.Record.PartNumber,
		})
	}

	return &storage.JobCounts{
		Extracted: len(crawl.Records),
		Saved:     result.Saved,
		Updated:   result.Updated,
		Rejected:  result.Rejected,
	}, nil
}

// finishFailed records the failure and schedules a retry when the error is
// retryable and the attempt ceiling has not been hit. A retry is a fresh job
// row; the failed one stays failed.
func (s *Scheduler) finishFailed(ctx context.Context, item *QueueItem, jobErr error) {
	errMsg := utils.TruncateString(jobErr.Error(), s.cfg.Scraper.ErrorTextSize)

	if err := s.jobs.MarkFailed(ctx, item.JobID, errMsg); err != nil {
		s.logger.Error("Failed to mark job failed", map[string]interface{}{
			"job_id": item.JobID,
			"error":  err.Error(),
		})
	}

	metrics.JobsTotal.WithLabelValues(item.VendorID, string(models.JobStatusFailed)).Inc()

	s.logger.Error("Job failed", map[string]interface{}{
		"job_id":    item.JobID,
		"vendor_id": item.VendorID,
		"attempt":   item.Attempt,
		"error":     errMsg,
	})

	if !utils.IsRetryable(jobErr) || item.Attempt >= s.cfg.Scheduler.MaxAttempts {
		return
	}

	backoff := s.cfg.Scheduler.RetryBackoff * (1 << (item.Attempt - 1))
	nextAttempt := item.Attempt + 1

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(backoff):
		case <-s.stop:
			return
		}

		if _, err := s.enqueueAttempt(context.Background(), item.VendorID, nextAttempt); err != nil {
			s.logger.Error("Failed to enqueue retry", map[string]interface{}{
				"vendor_id": item.VendorID,
				"attempt":   nextAttempt,
				"error":     err.Error(),
			})
		}
	}()
}
