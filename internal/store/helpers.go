package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyforge/internal/artifact"
)

// timeLayout is fixed width so lexical order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const jobColumns = "id, project_id, type, status, payload, result, error_message, worker_id, created_at, updated_at, started_at, finished_at"

const artifactColumns = "id, project_id, type, content, created_by_job_id, created_at"

type scanner interface{ Scan(dest ...any) error }

func scanJob(row scanner) (*Job, error) {
	var (
		job        Job
		jobType    string
		status     string
		payload    string
		result     sql.NullString
		errMsg     sql.NullString
		workerID   sql.NullString
		createdRaw string
		updatedRaw string
		startedRaw sql.NullString
		finishRaw  sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&jobType,
		&status,
		&payload,
		&result,
		&errMsg,
		&workerID,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishRaw,
	); err != nil {
		return nil, err
	}
	job.Type = JobType(jobType)
	job.Status = JobStatus(status)
	job.Payload = json.RawMessage(payload)
	if result.Valid && result.String != "" {
		job.Result = json.RawMessage(result.String)
	}
	job.ErrorMessage = errMsg.String
	job.WorkerID = workerID.String
	job.CreatedAt = parseTime(createdRaw)
	job.UpdatedAt = parseTime(updatedRaw)
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishRaw)
	return &job, nil
}

func scanArtifact(row scanner) (*artifact.Artifact, error) {
	var (
		a          artifact.Artifact
		artType    string
		content    string
		createdBy  sql.NullString
		createdRaw string
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &artType, &content, &createdBy, &createdRaw); err != nil {
		return nil, err
	}
	a.Type = artifact.Type(artType)
	if err := json.Unmarshal([]byte(content), &a.Content); err != nil {
		return nil, fmt.Errorf("decode artifact %s content: %w", a.ID, err)
	}
	a.CreatedByJobID = createdBy.String
	a.CreatedAt = parseTime(createdRaw)
	return &a, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func collectArtifacts(rows *sql.Rows) ([]*artifact.Artifact, error) {
	defer rows.Close()
	var out []*artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableJSON(value json.RawMessage) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
