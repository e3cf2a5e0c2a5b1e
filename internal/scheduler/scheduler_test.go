package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"partshub-catalog/internal/config"
	"partshub-catalog/internal/pipeline"
	"partshub-catalog/internal/scraper"
	"partshub-catalog/internal/storage/memory"
	"partshub-catalog/pkg/models"
	"partshub-catalog/pkg/utils"
)

type fakeRunner struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	calls      int
	delay      time.Duration
	err        error
	records    []models.RawRecord
	blockOnCtx bool
}

func (f *fakeRunner) Run(ctx context.Context, vendor *config.VendorConfig) (*scraper.Result, error) {
	f.mu.Lock()
	f.calls++
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if f.blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.Result{Records: f.records, PagesVisited: 1}, nil
}

type fakePersister struct{}

func (f *fakePersister) ValidateAndPersist(ctx context.Context, raws []models.RawRecord) (*pipeline.Result, error) {
	return &pipeline.Result{Saved: len(raws)}, nil
}

func testScheduler(t *testing.T, runner Runner) (*Scheduler, *memory.JobStore) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Scheduler.WorkerCount = 1
	cfg.Scheduler.JobTimeout = 5 * time.Second
	cfg.Scheduler.MaxAttempts = 3
	cfg.Scheduler.RetryBackoff = 10 * time.Millisecond
	cfg.Scheduler.PollInterval = 10 * time.Millisecond
	cfg.Scraper.ErrorTextSize = 1000

	registry := registryWith(t, "acme")
	jobs := memory.NewJobStore()

	s := New(cfg, registry, runner, &fakePersister{}, jobs, NewMemoryQueue())
	return s, jobs
}

func registryWith(t *testing.T, ids ...string) *config.VendorRegistry {
	t.Helper()

	doc := "vendors:\n"
	for _, id := range ids {
		doc += `
  - id: ` + id + `
    vendor_name: Vendor ` + id + `
    base_url: https://www.` + id + `.example
    entry_urls:
      - https://www.` + id + `.example/catalog
    method: http
    selectors:
      product_card: ".card"
      product_name: ".name"
      part_number: ".part"
`
	}

	path := filepath.Join(t.TempDir(), "vendors.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write vendor fixture: %v", err)
	}

	registry, err := config.LoadVendors(path)
	if err != nil {
		t.Fatalf("LoadVendors() error = %v", err)
	}
	return registry
}

func waitForJobs(t *testing.T, jobs *memory.JobStore, want int, status models.JobStatus) []*models.ScraperJob {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		list, err := jobs.ListJobs(context.Background(), models.JobFilter{Status: status})
		if err != nil {
			t.Fatalf("ListJobs() error = %v", err)
		}
		if len(list) >= want {
			return list
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %d jobs with status %q", want, status)
	return nil
}

func TestEnqueueUnknownVendor(t *testing.T) {
	s, _ := testScheduler(t, &fakeRunner{})

	if _, err := s.Enqueue(context.Background(), "nope"); !errors.Is(err, utils.ErrUnknownVendor) {
		t.Fatalf("Enqueue() error = %v, want ErrUnknownVendor", err)
	}
}

func TestJobRunsToCompletion(t *testing.T) {
	runner := &fakeRunner{records: []models.RawRecord{
		{VendorName: "Vendor acme", PartNumber: "A-1", ProductName: "Product A-1"},
	}}
	s, jobs := testScheduler(t, runner)

	job, err := s.Enqueue(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if job.Status != models.JobStatusQueued {
		t.Errorf("new job status = %q, want queued", job.Status)
	}

	s.Start(context.Background())
	defer s.Stop()

	waitForJobs(t, jobs, 1, models.JobStatusCompleted)

	done, err := jobs.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if done.RecordsExtracted != 1 || done.RecordsSaved != 1 {
		t.Errorf("counts = extracted %d saved %d, want 1/1", done.RecordsExtracted, done.RecordsSaved)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("terminal job is missing timestamps")
	}
}

func TestJobsRunOneAtATime(t *testing.T) {
	runner := &fakeRunner{delay: 30 * time.Millisecond}
	s, jobs := testScheduler(t, runner)

	for i := 0; i < 4; i++ {
		if _, err := s.Enqueue(context.Background(), "acme"); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	s.Start(context.Background())
	defer s.Stop()

	waitForJobs(t, jobs, 4, models.JobStatusCompleted)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.maxRunning != 1 {
		t.Errorf("max concurrent crawls = %d, want 1", runner.maxRunning)
	}
}

func TestRetryableFailureStopsAtAttemptCeiling(t *testing.T) {
	runner := &fakeRunner{err: utils.NewExtractionError("site down", errors.New("connect refused"))}
	s, jobs := testScheduler(t, runner)

	if _, err := s.Enqueue(context.Background(), "acme"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	s.Start(context.Background())

	failed := waitForJobs(t, jobs, 3, models.JobStatusFailed)
	s.Stop()

	if len(failed) != 3 {
		t.Fatalf("got %d failed jobs, want 3 (attempt ceiling)", len(failed))
	}

	attempts := map[int]bool{}
	for _, job := range failed {
		attempts[job.Attempt] = true
		if job.ErrorMessage == "" {
			t.Error("failed job has no error message")
		}
		if job.CompletedAt == nil {
			t.Error("failed job has no completed_at")
		}
	}
	for want := 1; want <= 3; want++ {
		if !attempts[want] {
			t.Errorf("no failed job with attempt %d", want)
		}
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.calls != 3 {
		t.Errorf("runner called %d times, want 3", runner.calls)
	}
}

func TestConfigErrorIsNotRetried(t *testing.T) {
	runner := &fakeRunner{err: utils.NewConfigError("no strategy registered")}
	s, jobs := testScheduler(t, runner)

	if _, err := s.Enqueue(context.Background(), "acme"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	s.Start(context.Background())

	waitForJobs(t, jobs, 1, models.JobStatusFailed)
	// Give a would-be retry time to appear
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	all, _ := jobs.ListJobs(context.Background(), models.JobFilter{})
	if len(all) != 1 {
		t.Errorf("got %d jobs, want 1: config errors must not be retried", len(all))
	}
}

func TestJobTimeoutFailsJob(t *testing.T) {
	runner := &fakeRunner{blockOnCtx: true}
	s, jobs := testScheduler(t, runner)
	s.cfg.Scheduler.JobTimeout = 50 * time.Millisecond
	s.cfg.Scheduler.MaxAttempts = 1

	if _, err := s.Enqueue(context.Background(), "acme"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	s.Start(context.Background())
	defer s.Stop()

	failed := waitForJobs(t, jobs, 1, models.JobStatusFailed)
	if failed[0].CompletedAt == nil {
		t.Error("timed-out job has no completed_at")
	}
}

func TestErrorMessageIsTruncated(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	runner := &fakeRunner{err: utils.NewConfigError(string(long))}

	s, jobs := testScheduler(t, runner)

	if _, err := s.Enqueue(context.Background(), "acme"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	s.Start(context.Background())
	defer s.Stop()

	failed := waitForJobs(t, jobs, 1, models.JobStatusFailed)
	if got := len(failed[0].ErrorMessage); got > 1000 {
		t.Errorf("error message length = %d, want at most 1000", got)
	}
}

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := q.Push(ctx, QueueItem{JobID: i, VendorID: "acme", Attempt: 1}); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	for i := int64(1); i <= 3; i++ {
		item, err := q.Pop(ctx, time.Second)
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if item == nil || item.JobID != i {
			t.Errorf("Pop() = %+v, want job %d", item, i)
		}
	}

	item, err := q.Pop(ctx, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Pop() on empty queue error = %v", err)
	}
	if item != nil {
		t.Errorf("Pop() on empty queue = %+v, want nil", item)
	}
}
