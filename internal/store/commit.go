package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"studyforge/internal/artifact"
)

// CommitBundle persists every artifact, edge, and rendering in b and marks
// the job completed with b.Result, all in one transaction. The job must be
// running. Edges are re-validated against artifact.AllowedGenerations with
// parent types read inside the transaction; any failure rolls back the whole
// bundle and leaves the job running for the caller to fail.
func (s *Store) CommitBundle(ctx context.Context, b Bundle) error {
	ctx = ensureContext(ctx)
	if b.JobID == "" {
		return errors.New("commit bundle: job id is required")
	}
	return retryOnBusy(ctx, func() error {
		return s.commitBundle(ctx, b)
	})
}

func (s *Store) commitBundle(ctx context.Context, b Bundle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		status    string
		projectID string
	)
	err = tx.QueryRowContext(ctx, `SELECT status, project_id FROM jobs WHERE id = ?`, b.JobID).Scan(&status, &projectID)
	if notFound(err) {
		return fmt.Errorf("commit bundle %s: %w", b.JobID, ErrJobNotFound)
	}
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if JobStatus(status) != StatusRunning {
		return fmt.Errorf("commit bundle %s (status %s): %w", b.JobID, status, ErrJobNotRunning)
	}
	if b.ProjectID != "" && b.ProjectID != projectID {
		return fmt.Errorf("commit bundle %s: bundle project %q, job project %q: %w", b.JobID, b.ProjectID, projectID, ErrProjectMismatch)
	}

	now := formatTime(s.now())
	for i, a := range b.Artifacts {
		if err := insertArtifact(ctx, tx, b.JobID, projectID, a, now); err != nil {
			return fmt.Errorf("artifacts[%d]: %w", i, err)
		}
	}

	var lookupErr error
	typeOf := func(id string) (artifact.Type, bool) {
		t, ok, err := artifactTypeInProject(ctx, tx, id, projectID)
		if err != nil && lookupErr == nil {
			lookupErr = err
		}
		return t, ok
	}
	if err := artifact.AllowedGenerations.ValidateEdges(b.Artifacts, b.Edges, typeOf); err != nil {
		if lookupErr != nil {
			return fmt.Errorf("resolve edge parents: %w", lookupErr)
		}
		return err
	}
	if lookupErr != nil {
		return fmt.Errorf("resolve edge parents: %w", lookupErr)
	}
	for i, e := range b.Edges {
		if e.ProjectID != "" && e.ProjectID != projectID {
			return fmt.Errorf("edges[%d]: %w", i, ErrProjectMismatch)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifact_edges (parent_id, child_id, relationship, project_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			e.ParentID, e.ChildID, e.Relationship, projectID, now,
		); err != nil {
			return fmt.Errorf("insert edge %s -> %s: %w", e.ParentID, e.ChildID, err)
		}
	}

	for i, r := range b.Renderings {
		if err := insertRendering(ctx, tx, projectID, r, now); err != nil {
			return fmt.Errorf("renderings[%d]: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error_message = NULL, finished_at = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, nullableJSON(b.Result), now, now, b.JobID,
	); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bundle tx: %w", err)
	}
	return nil
}

func insertArtifact(ctx context.Context, tx *sql.Tx, jobID, projectID string, a artifact.Artifact, now string) error {
	if a.ID == "" {
		return errors.New("artifact id is required")
	}
	if a.ProjectID != "" && a.ProjectID != projectID {
		return ErrProjectMismatch
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown artifact type %q", a.Type)
	}
	if err := a.Content.Validate(); err != nil {
		return err
	}
	if a.Type.RequiresBinary() && a.Content.Binary == nil {
		return fmt.Errorf("%s artifact %s has no rendered binary", a.Type, a.ID)
	}
	content, err := json.Marshal(a.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (id, project_id, type, content, created_by_job_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, projectID, a.Type, string(content), jobID, now,
	); err != nil {
		return fmt.Errorf("insert artifact %s: %w", a.ID, err)
	}
	return nil
}

func insertRendering(ctx context.Context, tx *sql.Tx, projectID string, r artifact.Rendering, now string) error {
	if r.ProjectID != "" && r.ProjectID != projectID {
		return ErrProjectMismatch
	}
	if r.ArtifactID == "" || r.Format == "" || r.StoragePath == "" {
		return errors.New("rendering requires artifact id, format, and storage path")
	}
	if _, ok, err := artifactTypeInProject(ctx, tx, r.ArtifactID, projectID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("rendering target %s does not exist", r.ArtifactID)
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO renderings (id, project_id, artifact_id, format, storage_path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, projectID, r.ArtifactID, r.Format, r.StoragePath, now,
	); err != nil {
		return fmt.Errorf("insert rendering for %s: %w", r.ArtifactID, err)
	}
	return nil
}

func artifactTypeInProject(ctx context.Context, tx *sql.Tx, id, projectID string) (artifact.Type, bool, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT type FROM artifacts WHERE id = ? AND project_id = ?`, id, projectID).Scan(&raw)
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return artifact.Type(raw), true, nil
}
