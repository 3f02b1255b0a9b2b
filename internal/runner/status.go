package runner

import (
	"context"

	"studyforge/internal/handler"
	"studyforge/internal/logging"
	"studyforge/internal/store"
)

// StatusSummary is a point-in-time view of the runner.
type StatusSummary struct {
	Running       bool
	WorkerID      string
	LastError     string
	LastJob       *Outcome
	JobStats      map[store.JobStatus]int
	HandlerHealth []handler.Health
}

// Status returns the latest runner information.
func (r *Runner) Status(ctx context.Context) StatusSummary {
	r.mu.RLock()
	summary := StatusSummary{Running: r.running, WorkerID: r.workerID}
	if r.lastErr != nil {
		summary.LastError = r.lastErr.Error()
	}
	if r.lastJob != nil {
		last := *r.lastJob
		summary.LastJob = &last
	}
	r.mu.RUnlock()

	stats, err := r.store.Stats(ctx)
	if err != nil {
		r.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.JobStats = stats
	if r.handlers != nil {
		summary.HandlerHealth = r.handlers.Health(ctx)
	}
	return summary
}

func (r *Runner) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

func (r *Runner) setLastJob(outcome *Outcome) {
	r.mu.Lock()
	last := *outcome
	r.lastJob = &last
	if outcome.Err != nil {
		r.lastErr = outcome.Err
	}
	r.mu.Unlock()
}
