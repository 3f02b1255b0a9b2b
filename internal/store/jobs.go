package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Enqueue inserts a pending job and returns it.
func (s *Store) Enqueue(ctx context.Context, projectID string, jobType JobType, payload any) (*Job, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("enqueue: project id is required")
	}
	if jobType == "" {
		return nil, errors.New("enqueue: job type is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.NewString()
	timestamp := formatTime(s.now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, project_id, type, status, payload, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, projectID, jobType, StatusPending, string(raw), timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. It returns (nil, nil) when absent.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ClaimNextJob atomically moves the oldest pending job to running and
// returns it, or (nil, nil) when the queue is empty. The select and the
// status change happen in one statement, and the status guard in the outer
// WHERE makes a lost race update zero rows instead of double-claiming.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string) (*Job, error) {
	ctx = ensureContext(ctx)
	now := formatTime(s.now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, worker_id = ?, started_at = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			StatusRunning, nullableString(workerID), now, now,
			StatusPending, StatusPending,
		)
		claimed, scanErr := scanJob(row)
		if notFound(scanErr) {
			job = nil
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// FailJob marks an active job failed with message. A job that already
// reached a terminal status is left untouched and reported as
// ErrJobNotRunning.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	now := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, message, now, now, id, StatusPending, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail job: rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("fail job %s: %w", id, ErrJobNotFound)
	}
	return fmt.Errorf("fail job %s (status %s): %w", id, job.Status, ErrJobNotRunning)
}

// FailStuckRunning fails jobs that have been running since before cutoff.
// They are never re-queued; resubmission is a new job.
func (s *Store) FailStuckRunning(ctx context.Context, cutoff time.Time) (int64, error) {
	now := formatTime(s.now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		StatusFailed, StuckJobReason, now, now, StatusRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// ListJobs returns jobs matching filter, oldest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	query := sq.Select(jobColumns).From("jobs").OrderBy("created_at", "rowid")
	if filter.ProjectID != "" {
		query = query.Where(sq.Eq{"project_id": filter.ProjectID})
	}
	if len(filter.Statuses) > 0 {
		query = query.Where(sq.Eq{"status": stringsOf(filter.Statuses)})
	}
	if len(filter.Types) > 0 {
		query = query.Where(sq.Eq{"type": stringsOf(filter.Types)})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return collectJobs(rows)
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
