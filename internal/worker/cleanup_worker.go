package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/observability/metrics"
)

// Purger drops expired entries and reports how many it removed
type Purger interface {
	PurgeExpired() int
	Len() int
}

// CleanupWorker periodically evicts expired in-memory sessions and flash
// queues. Redis expires its own keys, so the worker only runs without it.
type CleanupWorker struct {
	purger   Purger
	logger   *slog.Logger
	interval time.Duration
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(purger Purger, logger *slog.Logger, interval time.Duration) *CleanupWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CleanupWorker{purger: purger, logger: logger, interval: interval}
}

// Start runs the cleanup loop until ctx is cancelled
func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *CleanupWorker) runOnce() int {
	n := w.purger.PurgeExpired()
	remaining := w.purger.Len()
	metrics.ObserveCachePurge(n, remaining)
	if n > 0 {
		w.logger.Debug("purged expired entries",
			slog.Int("count", n),
			slog.Int("remaining", remaining),
		)
	}
	return n
}
