package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"studyforge/internal/config"
	"studyforge/internal/logging"
	"studyforge/internal/runner"
	"studyforge/internal/store"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another studyforge daemon instance is already running")

// Daemon coordinates the runner and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	runner *runner.Runner

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Runner       runner.StatusSummary
	Store        store.HealthSummary
	StorePath    string
	LockFilePath string
}

// New constructs a daemon around an already wired runner.
func New(cfg *config.Config, st *store.Store, r *runner.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || r == nil {
		return nil, errors.New("daemon requires config, store, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		runner:   r,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the runner.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	if err := d.runner.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start runner: %w", err)
	}
	d.running.Store(true)
	d.logger.Info("studyforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("worker_id", d.runner.WorkerID()),
	)
	return nil
}

// Stop waits for the in-flight job, then releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.runner.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("studyforge daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Runner:       d.runner.Status(ctx),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("failed to read store health", logging.Error(err))
	}
	status.Store = health
	return status
}

// LockHeld reports whether some process currently holds the daemon lock
// for cfg.
func LockHeld(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("check lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
