package worker

import (
	"context"
	"log/slog"
	"time"
)

// RetentionStore defines the store operations needed by the retention worker.
type RetentionStore interface {
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
}

// RunRetentionWorker periodically deletes run records older than the
// retention window. Samples are never pruned; only the run history is.
type RunRetentionWorker struct {
	store     RetentionStore
	interval  time.Duration
	retention time.Duration
}

// NewRunRetentionWorker creates a worker with the given store, prune
// interval, and retention window.
func NewRunRetentionWorker(store RetentionStore, interval, retention time.Duration) *RunRetentionWorker {
	return &RunRetentionWorker{
		store:     store,
		interval:  interval,
		retention: retention,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does NOT prune immediately on start; the first cycle waits one interval.
func (w *RunRetentionWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "run-retention",
		"interval", w.interval.String(),
		"retention", w.retention.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "run-retention",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runPrune(ctx)
		}
	}
}

// runPrune executes a single prune cycle.
func (w *RunRetentionWorker) runPrune(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-w.retention)

	slog.Debug("prune cycle started",
		"component", "worker",
		"action", "prune_start",
		"cutoff", cutoff.Format(time.RFC3339),
	)

	pruned, err := w.store.PruneRuns(ctx, cutoff)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Error("prune failed",
			"component", "worker",
			"action", "prune_failed",
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	slog.Info("prune cycle completed",
		"component", "worker",
		"action", "prune_complete",
		"pruned", pruned,
		"duration_ms", duration.Milliseconds(),
	)
}
