package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustEnqueue enqueues a job and fails the test on error.
func MustEnqueue(t testing.TB, st *store.Store, projectID string, jobType store.JobType, payload any) *store.Job {
	t.Helper()
	job, err := st.Enqueue(context.Background(), projectID, jobType, payload)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

// SeedCore commits a source artifact and a knowledge core for projectID
// through a real ingest-style bundle and returns the core artifact.
func SeedCore(t testing.TB, st *store.Store, projectID string, core *artifact.KnowledgeCore) *artifact.Artifact {
	t.Helper()
	ctx := context.Background()
	job := MustEnqueue(t, st, projectID, store.JobIngest, map[string]string{"source_type": "md", "source_ref": "seed.md"})
	claimed, err := st.ClaimNextJob(ctx, "seed")
	if err != nil || claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claim seed job: job=%v err=%v", claimed, err)
	}
	source := artifact.Artifact{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      artifact.TypeMD,
		Content:   artifact.Content{Kind: artifact.KindSource, SourceType: artifact.TypeMD, SourceRef: "seed.md", Text: core.PlainText()},
	}
	coreArtifact := artifact.Artifact{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      artifact.TypeKnowledgeCore,
		Content:   artifact.Content{Kind: artifact.KindCore, Core: core},
	}
	if err := st.CommitBundle(ctx, store.Bundle{
		JobID:     job.ID,
		ProjectID: projectID,
		Artifacts: []artifact.Artifact{source, coreArtifact},
	}); err != nil {
		t.Fatalf("commit seed bundle: %v", err)
	}
	return MustGetArtifact(t, st, coreArtifact.ID)
}

// SeedGenerated commits a generated artifact derived from parentIDs and
// returns it.
func SeedGenerated(t testing.TB, st *store.Store, projectID string, model artifact.Generated, parentIDs ...string) *artifact.Artifact {
	t.Helper()
	ctx := context.Background()
	job := MustEnqueue(t, st, projectID, store.JobGenerate, map[string]any{"source_artifact_ids": parentIDs, "target_type": model.ArtifactType()})
	if claimed, err := st.ClaimNextJob(ctx, "seed"); err != nil || claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claim seed job: job=%v err=%v", claimed, err)
	}
	content, err := artifact.GeneratedContent(model)
	if err != nil {
		t.Fatalf("generated content: %v", err)
	}
	if format := artifact.BinaryFormat(model.ArtifactType()); format != "" {
		content.Binary = &artifact.BinaryPointer{Format: format, StoragePath: "seed/" + format}
	}
	child := artifact.Artifact{ID: uuid.NewString(), ProjectID: projectID, Type: model.ArtifactType(), Content: content}
	edges := make([]artifact.Edge, 0, len(parentIDs))
	for _, parent := range parentIDs {
		edges = append(edges, artifact.Edge{ParentID: parent, ChildID: child.ID, Relationship: artifact.RelationDerivedFrom, ProjectID: projectID})
	}
	if err := st.CommitBundle(ctx, store.Bundle{JobID: job.ID, ProjectID: projectID, Artifacts: []artifact.Artifact{child}, Edges: edges, Result: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("commit seed bundle: %v", err)
	}
	return MustGetArtifact(t, st, child.ID)
}

// MustGetArtifact loads an artifact that must exist.
func MustGetArtifact(t testing.TB, st *store.Store, id string) *artifact.Artifact {
	t.Helper()
	a, err := st.GetArtifact(context.Background(), id)
	if err != nil || a == nil {
		t.Fatalf("GetArtifact(%s): artifact=%v err=%v", id, a, err)
	}
	return a
}

// MustGetJob loads a job that must exist.
func MustGetJob(t testing.TB, st *store.Store, id string) *store.Job {
	t.Helper()
	job, err := st.GetJob(context.Background(), id)
	if err != nil || job == nil {
		t.Fatalf("GetJob(%s): job=%v err=%v", id, job, err)
	}
	return job
}
