package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/metrics"
)

// Fetcher downloads the upstream dataset document
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SnapshotWriter persists a fetched document and returns its record count
type SnapshotWriter interface {
	Replace(ctx context.Context, doc []byte) (int, error)
}

// DatasetRefreshJob downloads the agencies list on a cron schedule.
// It runs once on Start so a fresh deployment has data before the first tick.
type DatasetRefreshJob struct {
	fetcher  Fetcher
	store    SnapshotWriter
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	stop    chan struct{}

	// serializes scheduled and manual runs
	runMu sync.Mutex
}

// NewDatasetRefreshJob validates schedule (standard 5-field cron) and builds the job
func NewDatasetRefreshJob(fetcher Fetcher, store SnapshotWriter, schedule string, timeout time.Duration) (*DatasetRefreshJob, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DatasetRefreshJob{
		fetcher:  fetcher,
		store:    store,
		schedule: schedule,
		timeout:  timeout,
		cron:     cron.New(),
		stop:     make(chan struct{}),
	}, nil
}

// Start runs one refresh, schedules the next ones and blocks until ctx is done or Stop is called
func (j *DatasetRefreshJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	if _, err := j.cron.AddFunc(j.schedule, func() { j.runScheduled(ctx) }); err != nil {
		j.mu.Unlock()
		logger.Error(ctx, "Failed to schedule dataset refresh", zap.Error(err))
		return
	}
	j.cron.Start()
	j.running = true
	j.mu.Unlock()

	logger.Info(ctx, "Dataset refresh job started", zap.String("schedule", j.schedule))
	j.runScheduled(ctx)

	select {
	case <-ctx.Done():
		logger.Info(ctx, "Dataset refresh job stopped (context cancelled)")
	case <-j.stop:
		logger.Info(ctx, "Dataset refresh job stopped")
	}
	j.shutdown()
}

// Stop ends Start and waits for an in-flight refresh
func (j *DatasetRefreshJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	select {
	case <-j.stop:
	default:
		close(j.stop)
	}
}

func (j *DatasetRefreshJob) shutdown() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
}

// RunOnce fetches and stores the dataset now
func (j *DatasetRefreshJob) RunOnce(ctx context.Context) (int, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	doc, err := j.fetcher.Fetch(ctx)
	if err != nil {
		metrics.DatasetRefreshed(0, err)
		return 0, fmt.Errorf("fetch dataset: %w", err)
	}
	n, err := j.store.Replace(ctx, doc)
	metrics.DatasetRefreshed(n, err)
	if err != nil {
		return 0, fmt.Errorf("store dataset: %w", err)
	}
	return n, nil
}

func (j *DatasetRefreshJob) runScheduled(ctx context.Context) {
	start := time.Now()
	n, err := j.RunOnce(ctx)
	if err != nil {
		logger.Error(ctx, "Dataset refresh failed", zap.Error(err))
		return
	}
	logger.Info(ctx, "Dataset refreshed", zap.Int("records", n), zap.Duration("took", time.Since(start)))
}

// Schedule returns the cron expression
func (j *DatasetRefreshJob) Schedule() string {
	return j.schedule
}

// NextRun returns the next scheduled refresh, or nil when the job is not running
func (j *DatasetRefreshJob) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return nil
	}
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
