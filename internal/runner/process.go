package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"studyforge/internal/logging"
	"studyforge/internal/notifications"
	"studyforge/internal/services"
	"studyforge/internal/store"
)

// Outcome describes one processed job.
type Outcome struct {
	JobID    string
	Type     store.JobType
	Status   store.JobStatus
	Message  string
	Duration time.Duration
	Err      error
}

// RunOnce claims and processes at most one job. It returns (nil, nil) when
// the queue is empty. The returned error covers only the claim itself; job
// failures are reported through the Outcome. A panic while claiming comes
// back as an error so the loop keeps running.
func (r *Runner) RunOnce(ctx context.Context) (outcome *Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(r.logger, "runner iteration panicked", rec)
			outcome = nil
			err = fmt.Errorf("runner iteration panicked: %v", rec)
		}
	}()
	job, err := r.store.ClaimNextJob(ctx, r.workerID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	outcome = r.process(ctx, job)
	r.setLastJob(outcome)
	r.notify(ctx, job, outcome)
	return outcome, nil
}

// notify publishes the outcome. Delivery problems are logged and never
// change the job's status.
func (r *Runner) notify(ctx context.Context, job *store.Job, outcome *Outcome) {
	notice := notifications.Job{
		ID:        job.ID,
		ProjectID: job.ProjectID,
		Type:      string(job.Type),
		Duration:  outcome.Duration,
		Message:   outcome.Message,
	}
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(r.logger.With(logging.String(logging.FieldJobID, job.ID)), "job notification panicked", rec)
		}
	}()
	var err error
	if outcome.Status == store.StatusFailed {
		err = r.notifier.NotifyJobFailed(ctx, notice)
	} else {
		err = r.notifier.NotifyJobCompleted(ctx, notice)
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "job notification failed", "notify_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

// process runs the claimed job to a terminal status. A panic anywhere after
// the claim fails the job unless the bundle was already committed.
func (r *Runner) process(ctx context.Context, job *store.Job) (outcome *Outcome) {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithProjectID(ctx, job.ProjectID)
	ctx = services.WithStage(ctx, string(job.Type))
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldJobType, string(job.Type)))
	start := time.Now()
	logger.Info("job claimed", logging.String("worker_id", r.workerID))

	outcome = &Outcome{JobID: job.ID, Type: job.Type}
	committed := false
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		r.logPanic(logger, "job processing panicked", rec)
		outcome.Duration = time.Since(start)
		if committed {
			outcome.Status = store.StatusCompleted
			return
		}
		err := services.Wrap(services.ErrTransient, string(job.Type), "process job", fmt.Sprintf("runner panicked: %v", rec), nil)
		outcome.Status = store.StatusFailed
		outcome.Err = err
		outcome.Message = r.failSafely(ctx, logger, job, err)
	}()

	bundle, err := r.execute(ctx, logger, job)
	if err == nil {
		err = r.commit(ctx, logger, job, bundle)
		committed = err == nil
	}
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Status = store.StatusFailed
		outcome.Err = err
		outcome.Message = r.failSafely(ctx, logger, job, err)
		return outcome
	}
	outcome.Status = store.StatusCompleted
	logger.Info("job completed",
		logging.Duration("duration", outcome.Duration),
		logging.Int("artifacts", len(bundle.Artifacts)),
		logging.Int("edges", len(bundle.Edges)),
		logging.Int("renderings", len(bundle.Renderings)),
	)
	return outcome
}

// execute resolves and runs the handler, converting a panic into an error.
func (r *Runner) execute(ctx context.Context, logger *slog.Logger, job *store.Job) (bundle *store.Bundle, err error) {
	h, err := r.handlers.Lookup(job.Type)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(logger, "handler panicked", rec)
			bundle = nil
			err = services.Wrap(services.ErrTransient, string(job.Type), "run handler", fmt.Sprintf("handler panicked: %v", rec), nil)
		}
	}()
	bundle, err = h.Run(ctx, job)
	if err == nil && bundle == nil {
		err = services.Wrap(services.ErrSemantic, string(job.Type), "run handler", "handler returned no bundle", nil)
	}
	return bundle, err
}

// commit persists the bundle. The commit outlives shutdown cancellation so
// finished work is not thrown away.
func (r *Runner) commit(ctx context.Context, logger *slog.Logger, job *store.Job, bundle *store.Bundle) error {
	bundle.JobID = job.ID
	if bundle.ProjectID == "" {
		bundle.ProjectID = job.ProjectID
	}
	if err := r.store.CommitBundle(context.WithoutCancel(ctx), *bundle); err != nil {
		logging.ErrorWithContext(logger, "bundle commit failed", "commit_failed",
			logging.Error(err),
			logging.Alert("commit_failed"),
			logging.Int("artifacts", len(bundle.Artifacts)),
			logging.Int("renderings", len(bundle.Renderings)),
			logging.String(logging.FieldErrorHint, "uploaded binaries use idempotent keys; resubmit the job"),
		)
		return services.Wrap(services.ErrTransient, "commit", "commit bundle", "bundle was not persisted", err)
	}
	return nil
}

// fail records err on the job and returns the stored message. If the store
// rejects the update the job stays running until the stuck-job reaper
// fails it.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *store.Job, err error) string {
	message := services.JobMessage(err)
	attrs := append(logging.ErrorAttrs(err),
		logging.String("error_message", message),
		logging.String(logging.FieldEventType, "job_failed"),
	)
	logger.Error("job failed", logging.Args(attrs...)...)
	if ferr := r.store.FailJob(context.WithoutCancel(ctx), job.ID, message); ferr != nil {
		logging.ErrorWithContext(logger, "failed to persist job failure", "fail_job_failed",
			logging.Error(ferr),
			logging.Alert("fail_job_failed"),
			logging.String(logging.FieldErrorHint, "job stays running until the stuck-job cutoff"),
		)
	}
	return message
}

// failSafely is fail with a panicking store contained; the job then stays
// running for the stuck-job reaper.
func (r *Runner) failSafely(ctx context.Context, logger *slog.Logger, job *store.Job, err error) (message string) {
	message = services.JobMessage(err)
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(logger, "failed to persist job failure", rec)
		}
	}()
	return r.fail(ctx, logger, job, err)
}

func (r *Runner) logPanic(logger *slog.Logger, msg string, rec any) {
	logging.ErrorWithContext(logger, msg, "runner_panic",
		logging.Any("panic", rec),
		logging.String("stack", string(debug.Stack())),
		logging.Alert("runner_panic"),
	)
}
