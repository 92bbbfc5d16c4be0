package usecases

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"agency-proxy.backend/internal/domain/entities"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/metrics"
)

const (
	defaultRecorderBuffer = 1024
	recorderWriteTimeout  = 5 * time.Second
	recorderDrainTimeout  = 10 * time.Second
)

// UsageRecorder appends request logs from a bounded queue on a background worker.
// Record never blocks; when the queue is full the entry is dropped and counted.
type UsageRecorder struct {
	repo  repositories.RequestLogRepository
	queue chan entities.RequestLog

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewUsageRecorder(repo repositories.RequestLogRepository, bufferSize int) *UsageRecorder {
	if bufferSize <= 0 {
		bufferSize = defaultRecorderBuffer
	}
	return &UsageRecorder{
		repo:  repo,
		queue: make(chan entities.RequestLog, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Record enqueues entry without waiting
func (r *UsageRecorder) Record(entry entities.RequestLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case r.queue <- entry:
	default:
		metrics.RequestLogDropped()
		logger.Warn(context.Background(), "Request log queue full, dropping entry",
			zap.String("endpoint", entry.Endpoint),
			zap.String("user_id", entry.UserID.String()),
		)
	}
}

// Start drains the queue until ctx is cancelled or Stop is called, then flushes what is left
func (r *UsageRecorder) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	defer close(r.done)
	logger.Info(ctx, "Usage recorder started", zap.Int("buffer", cap(r.queue)))

	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			logger.Info(ctx, "Usage recorder stopped (context cancelled)")
			return
		case <-r.stop:
			r.drain(ctx)
			logger.Info(ctx, "Usage recorder stopped")
			return
		case entry := <-r.queue:
			r.write(ctx, entry)
		}
	}
}

// Stop signals the worker and waits for the flush to finish
func (r *UsageRecorder) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

func (r *UsageRecorder) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, recorderDrainTimeout)
	defer cancel()
	for {
		select {
		case entry := <-r.queue:
			r.write(ctx, entry)
		default:
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (r *UsageRecorder) write(ctx context.Context, entry entities.RequestLog) {
	ctx, cancel := context.WithTimeout(ctx, recorderWriteTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &entry); err != nil {
		metrics.RequestLogWritten(false)
		logger.Error(ctx, "Failed to write request log",
			zap.String("endpoint", entry.Endpoint),
			zap.Error(err),
		)
		return
	}
	metrics.RequestLogWritten(true)
}
