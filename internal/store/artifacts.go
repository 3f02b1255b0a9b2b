package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"studyforge/internal/artifact"
)

// GetArtifact fetches an artifact by id. It returns (nil, nil) when absent.
func (s *Store) GetArtifact(ctx context.Context, id string) (*artifact.Artifact, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns artifacts matching filter, oldest first.
func (s *Store) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*artifact.Artifact, error) {
	query := sq.Select(artifactColumns).From("artifacts").OrderBy("created_at", "rowid")
	if filter.ProjectID != "" {
		query = query.Where(sq.Eq{"project_id": filter.ProjectID})
	}
	if len(filter.Types) > 0 {
		query = query.Where(sq.Eq{"type": stringsOf(filter.Types)})
	}
	if filter.CreatedByJobID != "" {
		query = query.Where(sq.Eq{"created_by_job_id": filter.CreatedByJobID})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build artifact query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return collectArtifacts(rows)
}

// ParentEdges returns the edges whose child is childID. The read is a
// snapshot; concurrent commits by other workers may add edges afterwards.
func (s *Store) ParentEdges(ctx context.Context, childID string) ([]artifact.Edge, error) {
	return s.edges(ctx, "child_id", childID)
}

// ChildEdges returns the edges whose parent is parentID.
func (s *Store) ChildEdges(ctx context.Context, parentID string) ([]artifact.Edge, error) {
	return s.edges(ctx, "parent_id", parentID)
}

func (s *Store) edges(ctx context.Context, column, id string) ([]artifact.Edge, error) {
	sqlText, args, err := sq.Select("parent_id", "child_id", "relationship", "project_id", "created_at").
		From("artifact_edges").
		Where(sq.Eq{column: id}).
		OrderBy("created_at", "rowid").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build edge query: %w", err)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []artifact.Edge
	for rows.Next() {
		var (
			e          artifact.Edge
			createdRaw string
		)
		if err := rows.Scan(&e.ParentID, &e.ChildID, &e.Relationship, &e.ProjectID, &createdRaw); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdRaw)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Renderings returns the binary renderings attached to artifactID.
func (s *Store) Renderings(ctx context.Context, artifactID string) ([]artifact.Rendering, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, project_id, artifact_id, format, storage_path, created_at FROM renderings WHERE artifact_id = ? ORDER BY format`,
		artifactID,
	)
	if err != nil {
		return nil, fmt.Errorf("query renderings: %w", err)
	}
	defer rows.Close()

	var out []artifact.Rendering
	for rows.Next() {
		var (
			r          artifact.Rendering
			createdRaw string
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.ArtifactID, &r.Format, &r.StoragePath, &createdRaw); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdRaw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ancestors walks derived_from edges upward from id and returns every
// ancestor with its minimum distance, nearest first.
func (s *Store) Ancestors(ctx context.Context, id string) ([]LineageEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`WITH RECURSIVE up(id, depth) AS (
             SELECT parent_id, 1 FROM artifact_edges WHERE child_id = ?
             UNION
             SELECT e.parent_id, up.depth + 1 FROM artifact_edges e JOIN up ON e.child_id = up.id
         )
         SELECT MIN(up.depth) AS depth, `+prefixed("a", artifactColumns)+`
         FROM up JOIN artifacts a ON a.id = up.id
         GROUP BY a.id
         ORDER BY depth, a.created_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	defer rows.Close()

	var out []LineageEntry
	for rows.Next() {
		var depth int
		a, err := scanArtifact(depthScanner{rows: rows, depth: &depth})
		if err != nil {
			return nil, err
		}
		out = append(out, LineageEntry{Artifact: *a, Depth: depth})
	}
	return out, rows.Err()
}

// depthScanner prepends the depth column to an artifact scan.
type depthScanner struct {
	rows  scanner
	depth *int
}

func (d depthScanner) Scan(dest ...any) error {
	return d.rows.Scan(append([]any{d.depth}, dest...)...)
}
