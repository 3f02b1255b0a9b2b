package store

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"studyforge/internal/artifact"
)

// JobStatus represents the lifecycle of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

var allStatuses = []JobStatus{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

// ParseStatus normalizes a textual status value.
func ParseStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// AllStatuses returns every job status in lifecycle order.
func AllStatuses() []JobStatus {
	return append([]JobStatus(nil), allStatuses...)
}

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType selects the handler that runs a job.
type JobType string

const (
	JobIngest   JobType = "ingest"
	JobGenerate JobType = "generate"
)

// StuckJobReason is the error message recorded on jobs reaped after their
// worker disappeared.
const StuckJobReason = "abandoned by worker: job stayed running past the stuck-job cutoff"

var (
	// ErrJobNotFound indicates the job id does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotRunning indicates a bundle was committed for a job that is
	// not currently claimed.
	ErrJobNotRunning = errors.New("job is not running")
	// ErrProjectMismatch indicates a bundle row belongs to another project.
	ErrProjectMismatch = errors.New("project mismatch")
)

// Job is a unit of queued work.
type Job struct {
	ID           string
	ProjectID    string
	Type         JobType
	Status       JobStatus
	Payload      json.RawMessage
	Result       json.RawMessage
	ErrorMessage string
	WorkerID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// DecodePayload unmarshals the job payload into dst.
func (j *Job) DecodePayload(dst any) error {
	if len(j.Payload) == 0 {
		return errors.New("job payload is empty")
	}
	return json.Unmarshal(j.Payload, dst)
}

// Bundle is everything one job proposes to write. It is committed in a
// single transaction together with the job's completion.
type Bundle struct {
	JobID      string
	ProjectID  string
	Artifacts  []artifact.Artifact
	Edges      []artifact.Edge
	Renderings []artifact.Rendering
	Result     json.RawMessage
}

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	ProjectID string
	Statuses  []JobStatus
	Types     []JobType
	Limit     uint64
}

// ArtifactFilter narrows ListArtifacts. Zero values match everything.
type ArtifactFilter struct {
	ProjectID      string
	Types          []artifact.Type
	CreatedByJobID string
	Limit          uint64
}

// LineageEntry is one ancestor of an artifact with its distance in edges.
type LineageEntry struct {
	Artifact artifact.Artifact
	Depth    int
}

// HealthSummary aggregates job counts by lifecycle bucket.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// DatabaseHealth describes the state of the store database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	TotalArtifacts   int
	Error            string
}
