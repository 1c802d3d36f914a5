// Package worker contains the background worker that keeps the translation
// cache small by deleting expired rows on a fixed interval. It runs next to
// the hub server and never touches request handling.
package worker

import (
	"context"
	"sync"
	"time"

	"translatorhub/internal/config"
	"translatorhub/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Cleaner is the part of the cache store the worker drives
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Status represents the current state of the worker
type Status struct {
	IsRunning     bool      `json:"is_running"`
	LastRunStart  time.Time `json:"last_run_start"`
	LastRunFinish time.Time `json:"last_run_finish"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	LastDeleted   int64     `json:"last_deleted"`
	NextRun       time.Time `json:"next_run"`
}

// RunRecord tracks individual worker runs
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure
	Deleted   int64         `json:"deleted"`
	Error     string        `json:"error,omitempty"`
}

// Worker periodically removes expired translation cache entries
type Worker struct {
	cleaner       Cleaner
	interval      time.Duration
	instance      string
	logger        *observability.Logger
	status        Status
	history       []RunRecord
	mu            sync.RWMutex
	manualTrigger chan bool

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
}

// NewWorker creates a worker that cleans every interval
func NewWorker(cleaner Cleaner, interval time.Duration, instance string, logger *observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Worker{
		cleaner:       cleaner,
		interval:      interval,
		instance:      instance,
		logger:        logger,
		history:       make([]RunRecord, 0, config.WorkerMaxHistory),
		manualTrigger: make(chan bool, 1),
		timeNow:       time.Now,
	}
}

// Start runs the cleanup loop until ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.mu.Lock()
	w.status.IsRunning = true
	w.status.NextRun = w.timeNow().Add(w.interval)
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": w.instance,
		"interval": w.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			return

		case <-ticker.C:
			w.run(ctx)

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "cleanup_cache",
		attribute.String("worker.instance", w.instance),
	)
	var err error
	defer observability.FinishSpan(span, &err)

	start := w.timeNow()
	deleted, err := w.cleaner.CleanupExpired(ctx)
	finish := w.timeNow()

	record := RunRecord{
		StartTime: start,
		EndTime:   finish,
		Duration:  finish.Sub(start),
		Status:    "Success",
		Deleted:   deleted,
	}

	w.mu.Lock()
	w.status.LastRunStart = start
	w.status.LastRunFinish = finish
	w.status.LastDeleted = deleted
	w.status.NextRun = finish.Add(w.interval)
	if err != nil {
		record.Status = "Failure"
		record.Error = err.Error()
		w.status.LastRunError = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.history = append(w.history, record)
	if len(w.history) > config.WorkerMaxHistory {
		w.history = w.history[len(w.history)-config.WorkerMaxHistory:]
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Worker run failed", err, map[string]interface{}{
			"instance": w.instance,
		})
		return
	}
	span.SetAttributes(attribute.Int64("cache.deleted_count", deleted))
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns the worker's run history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	// Return a copy to avoid race conditions
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// TriggerManualRun asks for a run now; a pending trigger absorbs repeats
func (w *Worker) TriggerManualRun() {
	select {
	case w.manualTrigger <- true:
	default:
		w.logger.Debug(context.Background(), "Manual trigger already pending for worker", map[string]interface{}{
			"instance": w.instance,
		})
	}
}
