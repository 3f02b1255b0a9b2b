package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyforge/internal/artifact"
	"studyforge/internal/store"
	"studyforge/internal/testsupport"
)

func TestEnqueueAndGetJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	job := testsupport.MustEnqueue(t, st, "proj-1", store.JobIngest, map[string]string{"source_type": "md"})
	if job.Status != store.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.ID == "" || job.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at, got %+v", job)
	}
	var payload map[string]string
	if err := job.DecodePayload(&payload); err != nil || payload["source_type"] != "md" {
		t.Fatalf("payload round trip failed: %v %v", payload, err)
	}

	missing, err := st.GetJob(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown job, got %v %v", missing, err)
	}
}

func TestClaimNextJobOrderAndEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, st, "p", store.JobIngest, map[string]int{"n": 1})
	second := testsupport.MustEnqueue(t, st, "p", store.JobIngest, map[string]int{"n": 2})

	claimed, err := st.ClaimNextJob(ctx, "w1")
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest job %s, got %+v", first.ID, claimed)
	}
	if claimed.Status != store.StatusRunning || claimed.WorkerID != "w1" || claimed.StartedAt == nil {
		t.Fatalf("claimed job not marked running: %+v", claimed)
	}

	claimed, err = st.ClaimNextJob(ctx, "w1")
	if err != nil || claimed == nil || claimed.ID != second.ID {
		t.Fatalf("expected second job, got %+v %v", claimed, err)
	}

	claimed, err = st.ClaimNextJob(ctx, "w1")
	if err != nil || claimed != nil {
		t.Fatalf("expected empty queue, got %+v %v", claimed, err)
	}
}

func TestClaimNextJobConcurrentClaimsAreExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		testsupport.MustEnqueue(t, st, "p", store.JobIngest, map[string]int{"n": i})
	}

	var (
		mu      sync.Mutex
		seen    = map[string]int{}
		wg      sync.WaitGroup
		claimed int
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			for {
				job, err := st.ClaimNextJob(ctx, worker)
				if err != nil {
					t.Errorf("ClaimNextJob: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				claimed++
				mu.Unlock()
			}
		}(fmt.Sprintf("w%d", w))
	}
	wg.Wait()

	if claimed != jobs {
		t.Fatalf("expected %d claims, got %d", jobs, claimed)
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}
}

func TestCommitBundleIngestShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	core := testsupport.SeedCore(t, st, "proj", testsupport.SampleCore("Cells"))
	if core.Type != artifact.TypeKnowledgeCore || core.Content.Core == nil {
		t.Fatalf("unexpected core artifact: %+v", core)
	}
	all, err := st.ListArtifacts(ctx, store.ArtifactFilter{ProjectID: "proj"})
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(all))
	}
	parents, err := st.ParentEdges(ctx, core.ID)
	if err != nil || len(parents) != 0 {
		t.Fatalf("knowledge core must have no parents, got %v %v", parents, err)
	}
	job := testsupport.MustGetJob(t, st, core.CreatedByJobID)
	if job.Status != store.StatusCompleted || job.FinishedAt == nil {
		t.Fatalf("expected completed job, got %+v", job)
	}
}

func TestCommitBundleWritesEdgesAndRenderings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	core := testsupport.SeedCore(t, st, "proj", testsupport.SampleCore("Cells"))
	job := testsupport.MustEnqueue(t, st, "proj", store.JobGenerate, map[string]string{"target_type": "exam"})
	if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	content, err := artifact.GeneratedContent(testsupport.SampleExam(10))
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	examID := uuid.NewString()
	key := artifact.ObjectKey("proj", examID, artifact.FormatPDF)
	content.Binary = &artifact.BinaryPointer{Format: artifact.FormatPDF, StoragePath: key}
	bundle := store.Bundle{
		JobID:      job.ID,
		ProjectID:  "proj",
		Artifacts:  []artifact.Artifact{{ID: examID, ProjectID: "proj", Type: artifact.TypeExam, Content: content}},
		Edges:      []artifact.Edge{{ParentID: core.ID, ChildID: examID, Relationship: artifact.RelationDerivedFrom}},
		Renderings: []artifact.Rendering{{ArtifactID: examID, Format: artifact.FormatPDF, StoragePath: key}},
		Result:     json.RawMessage(`{"artifact_id":"` + examID + `"}`),
	}
	if err := st.CommitBundle(ctx, bundle); err != nil {
		t.Fatalf("CommitBundle: %v", err)
	}

	parents, err := st.ParentEdges(ctx, examID)
	if err != nil || len(parents) != 1 || parents[0].ParentID != core.ID || parents[0].ProjectID != "proj" {
		t.Fatalf("unexpected parent edges: %+v %v", parents, err)
	}
	children, err := st.ChildEdges(ctx, core.ID)
	if err != nil || len(children) != 1 || children[0].ChildID != examID {
		t.Fatalf("unexpected child edges: %+v %v", children, err)
	}
	renderings, err := st.Renderings(ctx, examID)
	if err != nil || len(renderings) != 1 || renderings[0].StoragePath != key || renderings[0].ID == "" {
		t.Fatalf("unexpected renderings: %+v %v", renderings, err)
	}
	completed := testsupport.MustGetJob(t, st, job.ID)
	if completed.Status != store.StatusCompleted || string(completed.Result) == "" {
		t.Fatalf("job not completed with result: %+v", completed)
	}

	lineage, err := st.Ancestors(ctx, examID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(lineage) != 1 || lineage[0].Artifact.ID != core.ID || lineage[0].Depth != 1 {
		t.Fatalf("unexpected lineage: %+v", lineage)
	}
}

func TestCommitBundleRollsBackOnIllegalEdge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	core := testsupport.SeedCore(t, st, "proj", testsupport.SampleCore("Cells"))
	quiz := testsupport.SeedGenerated(t, st, "proj", testsupport.SampleQuiz(5), core.ID)

	tests := []struct {
		name  string
		child artifact.Artifact
		edge  func(childID string) artifact.Edge
	}{
		{
			name:  "edge into knowledge core",
			child: artifact.Artifact{ID: uuid.NewString(), Type: artifact.TypeKnowledgeCore, Content: artifact.Content{Kind: artifact.KindCore, Core: testsupport.SampleCore("Other")}},
			edge: func(childID string) artifact.Edge {
				return artifact.Edge{ParentID: quiz.ID, ChildID: childID, Relationship: artifact.RelationDerivedFrom}
			},
		},
		{
			name:  "missing parent",
			child: notesArtifact(t),
			edge: func(childID string) artifact.Edge {
				return artifact.Edge{ParentID: "ghost", ChildID: childID, Relationship: artifact.RelationDerivedFrom}
			},
		},
		{
			name:  "child outside bundle",
			child: notesArtifact(t),
			edge: func(string) artifact.Edge {
				return artifact.Edge{ParentID: core.ID, ChildID: quiz.ID, Relationship: artifact.RelationDerivedFrom}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before, err := st.ListArtifacts(ctx, store.ArtifactFilter{ProjectID: "proj"})
			if err != nil {
				t.Fatalf("ListArtifacts: %v", err)
			}
			job := testsupport.MustEnqueue(t, st, "proj", store.JobGenerate, map[string]string{})
			if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
				t.Fatalf("claim: %v", err)
			}
			err = st.CommitBundle(ctx, store.Bundle{
				JobID:     job.ID,
				ProjectID: "proj",
				Artifacts: []artifact.Artifact{tc.child},
				Edges:     []artifact.Edge{tc.edge(tc.child.ID)},
			})
			if err == nil {
				t.Fatal("expected commit to fail")
			}
			after, err := st.ListArtifacts(ctx, store.ArtifactFilter{ProjectID: "proj"})
			if err != nil {
				t.Fatalf("ListArtifacts: %v", err)
			}
			if len(after) != len(before) {
				t.Fatalf("artifacts leaked from failed commit: before=%d after=%d", len(before), len(after))
			}
			if got := testsupport.MustGetJob(t, st, job.ID); got.Status != store.StatusRunning {
				t.Fatalf("job should remain running after failed commit, got %s", got.Status)
			}
		})
	}
}

func notesArtifact(t *testing.T) artifact.Artifact {
	t.Helper()
	content, err := artifact.GeneratedContent(testsupport.SampleNotes())
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	return artifact.Artifact{ID: uuid.NewString(), Type: artifact.TypeNotes, Content: content}
}

func TestCommitBundleRequiresRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustEnqueue(t, st, "proj", store.JobIngest, map[string]string{})
	err := st.CommitBundle(ctx, store.Bundle{JobID: job.ID, ProjectID: "proj"})
	if !errors.Is(err, store.ErrJobNotRunning) {
		t.Fatalf("expected ErrJobNotRunning for pending job, got %v", err)
	}
	err = st.CommitBundle(ctx, store.Bundle{JobID: "missing"})
	if !errors.Is(err, store.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCommitBundleRejectsBinaryTypeWithoutBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	core := testsupport.SeedCore(t, st, "proj", testsupport.SampleCore("Cells"))
	job := testsupport.MustEnqueue(t, st, "proj", store.JobGenerate, map[string]string{})
	if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	content, err := artifact.GeneratedContent(testsupport.SampleSlides(3))
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	slides := artifact.Artifact{ID: uuid.NewString(), Type: artifact.TypeSlides, Content: content}
	err = st.CommitBundle(ctx, store.Bundle{
		JobID:     job.ID,
		Artifacts: []artifact.Artifact{slides},
		Edges:     []artifact.Edge{{ParentID: core.ID, ChildID: slides.ID, Relationship: artifact.RelationDerivedFrom}},
	})
	if err == nil {
		t.Fatal("expected slides without binary to be rejected")
	}
}

func TestFailJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustEnqueue(t, st, "proj", store.JobIngest, map[string]string{})
	if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.FailJob(ctx, job.ID, "extract: boom"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	failed := testsupport.MustGetJob(t, st, job.ID)
	if failed.Status != store.StatusFailed || failed.ErrorMessage != "extract: boom" {
		t.Fatalf("unexpected failed job: %+v", failed)
	}
	if err := st.FailJob(ctx, job.ID, "again"); !errors.Is(err, store.ErrJobNotRunning) {
		t.Fatalf("expected ErrJobNotRunning on terminal job, got %v", err)
	}
	if err := st.FailJob(ctx, "missing", "x"); !errors.Is(err, store.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFailStuckRunningNeverRequeues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustEnqueue(t, st, "proj", store.JobIngest, map[string]string{})
	if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	affected, err := st.FailStuckRunning(ctx, time.Now().Add(-time.Hour))
	if err != nil || affected != 0 {
		t.Fatalf("fresh job should not be reaped: %d %v", affected, err)
	}
	affected, err = st.FailStuckRunning(ctx, time.Now().Add(time.Minute))
	if err != nil || affected != 1 {
		t.Fatalf("expected one reaped job, got %d %v", affected, err)
	}
	reaped := testsupport.MustGetJob(t, st, job.ID)
	if reaped.Status != store.StatusFailed || reaped.ErrorMessage != store.StuckJobReason {
		t.Fatalf("unexpected reaped job: %+v", reaped)
	}
	if next, err := st.ClaimNextJob(ctx, "w"); err != nil || next != nil {
		t.Fatalf("reaped job must not be claimable: %+v %v", next, err)
	}
}

func TestListJobsFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustEnqueue(t, st, "a", store.JobIngest, map[string]string{})
	testsupport.MustEnqueue(t, st, "a", store.JobGenerate, map[string]string{})
	testsupport.MustEnqueue(t, st, "b", store.JobIngest, map[string]string{})
	if _, err := st.ClaimNextJob(ctx, "w"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	tests := []struct {
		name   string
		filter store.JobFilter
		want   int
	}{
		{"all", store.JobFilter{}, 3},
		{"project", store.JobFilter{ProjectID: "a"}, 2},
		{"status", store.JobFilter{Statuses: []store.JobStatus{store.StatusPending}}, 2},
		{"types", store.JobFilter{Types: []store.JobType{store.JobIngest}}, 2},
		{"combined", store.JobFilter{ProjectID: "a", Types: []store.JobType{store.JobGenerate}}, 1},
		{"limit", store.JobFilter{Limit: 1}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			jobs, err := st.ListJobs(ctx, tc.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(jobs) != tc.want {
				t.Fatalf("got %d jobs, want %d", len(jobs), tc.want)
			}
		})
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[store.StatusPending] != 2 || stats[store.StatusRunning] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingTables) != 0 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected schema state: %+v", health)
	}
}
