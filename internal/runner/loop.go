package runner

import (
	"context"
	"errors"
	"time"

	"studyforge/internal/logging"
)

// Start reaps stuck jobs and begins background processing.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("runner already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	if _, err := r.ReapStuck(ctx); err != nil {
		logging.WarnWithContext(r.logger, "stuck job reaping failed; abandoned jobs may stay running", "stuck_reap_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store database access"),
		)
	}

	go r.loop(runCtx)
	r.logger.Info("runner started",
		logging.String("worker_id", r.workerID),
		logging.Duration("poll_interval", r.pollInterval),
	)
	return nil
}

// Stop cancels the loop and waits for the in-flight job to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Info("runner stopped")
}

// ReapStuck fails jobs that have been running longer than the configured
// stuck-job age. A non-positive age disables reaping.
func (r *Runner) ReapStuck(ctx context.Context) (int64, error) {
	if r.stuckAge <= 0 {
		return 0, nil
	}
	reaped, err := r.store.FailStuckRunning(ctx, r.now().Add(-r.stuckAge))
	if err != nil {
		return 0, err
	}
	if reaped > 0 {
		logging.WarnWithContext(r.logger, "failed stuck jobs", "stuck_jobs_failed",
			logging.Int64("count", reaped),
			logging.Duration("older_than", r.stuckAge),
			logging.String(logging.FieldErrorHint, "a previous worker exited mid-job; resubmit if needed"),
		)
	}
	return reaped, nil
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		outcome, err := r.RunOnce(ctx)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) {
				return
			}
			r.setLastError(err)
			logging.ErrorWithContext(r.logger, "failed to claim next job", "claim_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check store database access"),
			)
			r.sleep(ctx, r.retryInterval)
		case outcome == nil:
			r.sleep(ctx, r.pollInterval)
		}
	}
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
