package runner_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyforge/internal/artifact"
	"studyforge/internal/handler"
	"studyforge/internal/notifications"
	"studyforge/internal/runner"
	"studyforge/internal/services"
	"studyforge/internal/store"
	"studyforge/internal/testsupport"
)

const project = "proj-1"

type stubHandler struct {
	mu    sync.Mutex
	calls int
	run   func(job *store.Job) (*store.Bundle, error)
}

func (s *stubHandler) Run(_ context.Context, job *store.Job) (*store.Bundle, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.run(job)
}

func (s *stubHandler) HealthCheck(context.Context) handler.Health { return handler.Healthy("stub") }

func ingestBundle(job *store.Job) (*store.Bundle, error) {
	core := testsupport.SampleCore("Runner")
	return &store.Bundle{
		Artifacts: []artifact.Artifact{
			{ID: uuid.NewString(), Type: artifact.TypeMD, Content: artifact.Content{Kind: artifact.KindSource, SourceType: artifact.TypeMD, SourceRef: "a.md", Text: core.PlainText()}},
			{ID: uuid.NewString(), Type: artifact.TypeKnowledgeCore, Content: artifact.Content{Kind: artifact.KindCore, Core: core}},
		},
		Result: []byte(`{"ok":true}`),
	}, nil
}

func newRunner(t *testing.T, h handler.Handler, opts ...runner.Option) (*runner.Runner, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	registry := handler.NewRegistry()
	registry.Register(store.JobIngest, h)
	opts = append([]runner.Option{runner.WithIntervals(5*time.Millisecond, 5*time.Millisecond)}, opts...)
	return runner.New(cfg, st, registry, nil, opts...), st
}

func TestRunOnceEmptyQueue(t *testing.T) {
	r, _ := newRunner(t, &stubHandler{run: ingestBundle})
	outcome, err := r.RunOnce(context.Background())
	if err != nil || outcome != nil {
		t.Fatalf("expected empty queue, got outcome=%v err=%v", outcome, err)
	}
}

func TestRunOnceCommitsBundle(t *testing.T) {
	h := &stubHandler{run: ingestBundle}
	r, st := newRunner(t, h)
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{"source_type": "md", "source_ref": "a.md"})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.JobID != job.ID || outcome.Status != store.StatusCompleted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	stored := testsupport.MustGetJob(t, st, job.ID)
	if stored.Status != store.StatusCompleted || string(stored.Result) != `{"ok":true}` || stored.WorkerID != "test-worker" {
		t.Fatalf("unexpected job state %+v", stored)
	}
	arts, err := st.ListArtifacts(context.Background(), store.ArtifactFilter{CreatedByJobID: job.ID})
	if err != nil || len(arts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d (%v)", len(arts), err)
	}
}

func TestRunOnceHandlerErrorFailsJob(t *testing.T) {
	handlerErr := services.Wrap(services.ErrNotFound, "generate", "load source", "artifact x not found in project proj-1", nil)
	r, st := newRunner(t, &stubHandler{run: func(*store.Job) (*store.Bundle, error) { return nil, handlerErr }})
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusFailed || !errors.Is(outcome.Err, services.ErrNotFound) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	stored := testsupport.MustGetJob(t, st, job.ID)
	if stored.Status != store.StatusFailed || stored.ErrorMessage != services.JobMessage(handlerErr) {
		t.Fatalf("unexpected job state status=%s message=%q", stored.Status, stored.ErrorMessage)
	}
}

func TestRunOnceRecoversFromPanic(t *testing.T) {
	first := true
	h := &stubHandler{run: func(job *store.Job) (*store.Bundle, error) {
		if first {
			first = false
			panic("boom")
		}
		return ingestBundle(job)
	}}
	r, st := newRunner(t, h)
	bad := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})
	good := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	for range 2 {
		if _, err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}
	if got := testsupport.MustGetJob(t, st, bad.ID); got.Status != store.StatusFailed || !strings.Contains(got.ErrorMessage, "boom") {
		t.Fatalf("panicking job should fail with the panic value, got %s %q", got.Status, got.ErrorMessage)
	}
	if got := testsupport.MustGetJob(t, st, good.ID); got.Status != store.StatusCompleted {
		t.Fatalf("next job should complete, got %s", got.Status)
	}
}

func TestRunOnceUnknownJobTypeFails(t *testing.T) {
	h := &stubHandler{run: ingestBundle}
	r, st := newRunner(t, h)
	job := testsupport.MustEnqueue(t, st, project, store.JobGenerate, map[string]string{"target_type": "quiz"})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusFailed || !errors.Is(outcome.Err, services.ErrValidation) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if h.calls != 0 {
		t.Fatalf("no handler should run for an unregistered type")
	}
	if got := testsupport.MustGetJob(t, st, job.ID); got.Status != store.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestRunOnceCommitFailureFailsJobWithoutArtifacts(t *testing.T) {
	h := &stubHandler{run: func(job *store.Job) (*store.Bundle, error) {
		bundle, _ := ingestBundle(job)
		// A knowledge core may never have a parent.
		bundle.Edges = []artifact.Edge{{
			ParentID:     bundle.Artifacts[0].ID,
			ChildID:      bundle.Artifacts[1].ID,
			Relationship: artifact.RelationDerivedFrom,
		}}
		return bundle, nil
	}}
	r, st := newRunner(t, h)
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusFailed {
		t.Fatalf("expected failed outcome, got %+v", outcome)
	}
	stored := testsupport.MustGetJob(t, st, job.ID)
	if stored.Status != store.StatusFailed || !strings.Contains(stored.ErrorMessage, "bundle was not persisted") {
		t.Fatalf("unexpected job state %s %q", stored.Status, stored.ErrorMessage)
	}
	arts, _ := st.ListArtifacts(context.Background(), store.ArtifactFilter{CreatedByJobID: job.ID})
	if len(arts) != 0 {
		t.Fatalf("rolled back commit left %d artifacts", len(arts))
	}
}

func TestStartProcessesQueueUntilStopped(t *testing.T) {
	h := &stubHandler{run: ingestBundle}
	r, st := newRunner(t, h)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Stop)
	if err := r.Start(context.Background()); err == nil {
		t.Fatalf("second Start should fail")
	}
	ids := []string{
		testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{}).ID,
		testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{}).ID,
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		done := 0
		for _, id := range ids {
			if testsupport.MustGetJob(t, st, id).Status == store.StatusCompleted {
				done++
			}
		}
		if done == len(ids) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("jobs not processed before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := r.Status(context.Background())
	if !status.Running || status.LastJob == nil || status.JobStats[store.StatusCompleted] != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	r.Stop()
	if r.Status(context.Background()).Running {
		t.Fatalf("runner should report stopped")
	}
}

func TestStartFailsStuckJobs(t *testing.T) {
	h := &stubHandler{run: ingestBundle}
	later := time.Now().Add(24 * time.Hour)
	r, st := newRunner(t, h, runner.WithClock(func() time.Time { return later }))
	stuck := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})
	if _, err := st.ClaimNextJob(context.Background(), "gone-worker"); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	reaped, err := r.ReapStuck(context.Background())
	if err != nil || reaped != 1 {
		t.Fatalf("expected one reaped job, got %d (%v)", reaped, err)
	}
	got := testsupport.MustGetJob(t, st, stuck.ID)
	if got.Status != store.StatusFailed || got.ErrorMessage != store.StuckJobReason {
		t.Fatalf("unexpected stuck job state %s %q", got.Status, got.ErrorMessage)
	}
	if h.calls != 0 {
		t.Fatalf("reaped jobs must not be re-run")
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []notifications.Job
	failed    []notifications.Job
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, job notifications.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, job)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, job notifications.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, job)
	return errors.New("ntfy unreachable")
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestRunOnceNotifiesOutcomes(t *testing.T) {
	notifier := &recordingNotifier{}
	calls := 0
	h := &stubHandler{run: func(job *store.Job) (*store.Bundle, error) {
		calls++
		if calls == 1 {
			return ingestBundle(job)
		}
		return nil, services.Wrap(services.ErrSemantic, "ingest", "extract", "extracted text too short", nil)
	}}
	r, st := newRunner(t, h, runner.WithNotifier(notifier))
	ok := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})
	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	bad := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})
	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusFailed {
		t.Fatalf("notifier error must not change the outcome, got %+v", outcome)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.completed) != 1 || notifier.completed[0].ID != ok.ID || notifier.completed[0].ProjectID != project {
		t.Fatalf("unexpected completed notices %+v", notifier.completed)
	}
	if len(notifier.failed) != 1 || notifier.failed[0].ID != bad.ID || !strings.Contains(notifier.failed[0].Message, "too short") {
		t.Fatalf("unexpected failed notices %+v", notifier.failed)
	}
}

type panicNotifier struct{}

func (panicNotifier) NotifyJobCompleted(context.Context, notifications.Job) error {
	panic("notifier boom")
}

func (panicNotifier) NotifyJobFailed(context.Context, notifications.Job) error {
	panic("notifier boom")
}

func (panicNotifier) TestNotification(context.Context) error { return nil }

// faultyStore panics in the selected store calls.
type faultyStore struct {
	*store.Store
	claim, commit, fail bool
}

func (f *faultyStore) ClaimNextJob(ctx context.Context, workerID string) (*store.Job, error) {
	if f.claim {
		panic("claim boom")
	}
	return f.Store.ClaimNextJob(ctx, workerID)
}

func (f *faultyStore) CommitBundle(ctx context.Context, b store.Bundle) error {
	if f.commit {
		panic("commit boom")
	}
	return f.Store.CommitBundle(ctx, b)
}

func (f *faultyStore) FailJob(ctx context.Context, id, message string) error {
	if f.fail {
		panic("fail boom")
	}
	return f.Store.FailJob(ctx, id, message)
}

func newFaultyRunner(t *testing.T, h handler.Handler, faults *faultyStore, opts ...runner.Option) (*runner.Runner, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	faults.Store = st
	registry := handler.NewRegistry()
	registry.Register(store.JobIngest, h)
	opts = append([]runner.Option{runner.WithIntervals(5*time.Millisecond, 5*time.Millisecond)}, opts...)
	return runner.New(cfg, faults, registry, nil, opts...), st
}

func TestRunOnceCommitPanicFailsJob(t *testing.T) {
	r, st := newFaultyRunner(t, &stubHandler{run: ingestBundle}, &faultyStore{commit: true})
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome == nil || outcome.Status != store.StatusFailed || !strings.Contains(outcome.Message, "commit boom") {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	stored := testsupport.MustGetJob(t, st, job.ID)
	if stored.Status != store.StatusFailed || !strings.Contains(stored.ErrorMessage, "commit boom") {
		t.Fatalf("unexpected job state %s %q", stored.Status, stored.ErrorMessage)
	}
	arts, _ := st.ListArtifacts(context.Background(), store.ArtifactFilter{CreatedByJobID: job.ID})
	if len(arts) != 0 {
		t.Fatalf("panicked commit left %d artifacts", len(arts))
	}
}

func TestRunOnceContainsPanicInFailJob(t *testing.T) {
	handlerErr := errors.New("extractor exploded")
	h := &stubHandler{run: func(*store.Job) (*store.Bundle, error) { return nil, handlerErr }}
	r, st := newFaultyRunner(t, h, &faultyStore{fail: true})
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusFailed || !errors.Is(outcome.Err, handlerErr) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if got := testsupport.MustGetJob(t, st, job.ID).Status; got != store.StatusRunning {
		t.Fatalf("job should stay running for the reaper, got %s", got)
	}
}

func TestRunOnceClaimPanicIsError(t *testing.T) {
	r, _ := newFaultyRunner(t, &stubHandler{run: ingestBundle}, &faultyStore{claim: true})
	outcome, err := r.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "claim boom") || outcome != nil {
		t.Fatalf("expected claim panic as error, got outcome=%v err=%v", outcome, err)
	}
}

func TestRunOnceNotifierPanicKeepsOutcome(t *testing.T) {
	r, st := newRunner(t, &stubHandler{run: ingestBundle}, runner.WithNotifier(panicNotifier{}))
	job := testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{})

	outcome, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if outcome.Status != store.StatusCompleted {
		t.Fatalf("notifier panic changed the outcome: %+v", outcome)
	}
	if got := testsupport.MustGetJob(t, st, job.ID).Status; got != store.StatusCompleted {
		t.Fatalf("unexpected job status %s", got)
	}
}

func TestStartSurvivesPanicsOutsideHandler(t *testing.T) {
	r, st := newRunner(t, &stubHandler{run: ingestBundle}, runner.WithNotifier(panicNotifier{}))
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Stop)
	ids := []string{
		testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{}).ID,
		testsupport.MustEnqueue(t, st, project, store.JobIngest, map[string]string{}).ID,
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, id := range ids {
		for testsupport.MustGetJob(t, st, id).Status != store.StatusCompleted {
			if time.Now().After(deadline) {
				t.Fatalf("loop stopped processing after a notifier panic")
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !r.Status(context.Background()).Running {
		t.Fatalf("runner should still be running")
	}
}
