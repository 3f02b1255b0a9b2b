package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"studyforge/internal/config"
	"studyforge/internal/handler"
	"studyforge/internal/logging"
	"studyforge/internal/notifications"
	"studyforge/internal/store"
)

// JobStore is the persistence surface the loop needs.
type JobStore interface {
	ClaimNextJob(ctx context.Context, workerID string) (*store.Job, error)
	CommitBundle(ctx context.Context, b store.Bundle) error
	FailJob(ctx context.Context, id, message string) error
	FailStuckRunning(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (map[store.JobStatus]int, error)
}

// Runner coordinates job processing for one worker.
type Runner struct {
	store    JobStore
	handlers *handler.Registry
	notifier notifications.Service
	logger   *slog.Logger

	workerID      string
	pollInterval  time.Duration
	retryInterval time.Duration
	stuckAge      time.Duration
	now           func() time.Time

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *Outcome
}

// Option configures optional Runner behavior.
type Option func(*Runner)

// WithIntervals overrides the idle poll and error retry sleeps.
func WithIntervals(poll, retry time.Duration) Option {
	return func(r *Runner) {
		r.pollInterval = poll
		r.retryInterval = retry
	}
}

// WithNotifier replaces the outcome notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithClock replaces the clock used for the stuck-job cutoff.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a runner from the runner section of cfg.
func New(cfg *config.Config, st JobStore, handlers *handler.Registry, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		store:         st,
		handlers:      handlers,
		notifier:      notifications.NewService(cfg),
		logger:        logging.NewComponentLogger(logger, "runner"),
		workerID:      cfg.Runner.WorkerID,
		pollInterval:  cfg.PollInterval(),
		retryInterval: cfg.ErrorRetryInterval(),
		stuckAge:      cfg.StuckJobAge(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WorkerID is the identity recorded on claimed jobs.
func (r *Runner) WorkerID() string { return r.workerID }
