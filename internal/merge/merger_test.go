package merge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"studyforge/internal/artifact"
	"studyforge/internal/merge"
)

func contextFor(title string, concepts, facts []string) artifact.KnowledgeContext {
	return artifact.KnowledgeContext{
		Title:        title,
		Summary:      title + " covers " + strings.Join(concepts, ", ") + ".",
		Concepts:     concepts,
		Facts:        facts,
		SourceTitles: []string{title},
	}
}

func fiveContexts() []artifact.KnowledgeContext {
	return []artifact.KnowledgeContext{
		contextFor("A", []string{"Cells", "Mitosis"}, []string{"Cells divide."}),
		contextFor("B", []string{"mitosis", "Meiosis"}, []string{"Meiosis halves chromosomes."}),
		contextFor("C", []string{"DNA"}, []string{"DNA is a double helix.", "Cells divide."}),
		contextFor("D", []string{"RNA", "Ribosomes"}, []string{"Ribosomes build proteins."}),
		contextFor("E", []string{"Proteins", "DNA"}, []string{"Proteins fold."}),
	}
}

func keySet(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, strings.ToLower(item))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// unionCompleter fails every summary call and answers merge calls with the
// exact union of the listed concepts and facts.
type unionCompleter struct {
	mu             sync.Mutex
	summaryCalls   int
	mergeCalls     int
	maxMergeInputs int
	conflict       string
	mergePrompts   []string
}

func (u *unionCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !strings.HasPrefix(system, "You merge") {
		u.summaryCalls++
		return "", errors.New("summarizer offline")
	}
	u.mergeCalls++
	u.mergePrompts = append(u.mergePrompts, user)
	inputs := strings.Count(user, "Source ")
	u.maxMergeInputs = max(u.maxMergeInputs, inputs)

	var concepts, facts []string
	section := ""
	for _, line := range strings.Split(user, "\n") {
		switch {
		case line == "Concepts:":
			section = "concepts"
		case line == "Facts:":
			section = "facts"
		case strings.HasPrefix(line, "- ") && section == "concepts":
			concepts = append(concepts, line[2:])
		case strings.HasPrefix(line, "- ") && section == "facts":
			facts = append(facts, line[2:])
		default:
			section = ""
		}
	}
	payload, _ := json.Marshal(map[string]any{
		"concepts":       concepts,
		"facts":          facts,
		"abstract":       fmt.Sprintf("merged %d sources", inputs),
		"conflict_notes": u.conflict,
	})
	return string(payload), nil
}

func TestMergeSingleContextPassesThroughSummary(t *testing.T) {
	m := merge.New(nil, merge.Options{}, nil)
	kc := contextFor("Only", []string{"Alpha", "Beta"}, []string{"Alpha precedes beta."})

	summaries, err := m.Summarize(context.Background(), []artifact.KnowledgeContext{kc})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	combined, err := m.Merge(context.Background(), []artifact.KnowledgeContext{kc})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !slices.Equal(combined.Concepts, summaries[0].Concepts) || !slices.Equal(combined.Facts, summaries[0].Facts) {
		t.Fatalf("single merge should pass through summary, got %+v vs %+v", combined, summaries[0])
	}
	if got := combined.Context().Title; got != "Only" {
		t.Fatalf("expected source title, got %q", got)
	}
}

func TestHierarchicalMergeMatchesFlatMerge(t *testing.T) {
	opts := merge.Options{MaxConcepts: 7, MaxFacts: 7, AbstractChars: 200}
	inputs := fiveContexts()

	for name, completer := range map[string]merge.Completer{
		"fallback": nil,
		"llm":      &unionCompleter{},
	} {
		t.Run(name, func(t *testing.T) {
			m := merge.New(completer, opts, nil)
			hier, err := m.Merge(context.Background(), inputs)
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			summaries, err := merge.New(nil, opts, nil).Summarize(context.Background(), inputs)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			flat := merge.FallbackMerge(summaries, opts)

			if got, want := keySet(hier.Concepts), keySet(flat.Concepts); !slices.Equal(got, want) {
				t.Fatalf("concept sets differ:\n hierarchical %v\n flat         %v", got, want)
			}
			if len(hier.SourceTitles) != 5 {
				t.Fatalf("expected five source titles, got %v", hier.SourceTitles)
			}
		})
	}
}

func TestHierarchicalMergeBoundsEachCall(t *testing.T) {
	completer := &unionCompleter{}
	m := merge.New(completer, merge.Options{}, nil)
	if _, err := m.Merge(context.Background(), fiveContexts()); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if completer.summaryCalls != 5 {
		t.Fatalf("expected one summary call per input, got %d", completer.summaryCalls)
	}
	// Five inputs: two pair merges, a pass-through single, then one final merge of three.
	if completer.mergeCalls != 3 {
		t.Fatalf("expected 3 merge calls, got %d", completer.mergeCalls)
	}
	if completer.maxMergeInputs > 3 {
		t.Fatalf("a merge call received %d summaries", completer.maxMergeInputs)
	}
}

func TestHierarchicalMergeRewrapsPairTitles(t *testing.T) {
	completer := &unionCompleter{}
	m := merge.New(completer, merge.Options{Concurrency: 1}, nil)
	if _, err := m.Merge(context.Background(), fiveContexts()); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	final := completer.mergePrompts[len(completer.mergePrompts)-1]
	for _, want := range []string{"Source 1: Merged: A, B\n", "Source 2: Merged: C, D\n", "Source 3: E\n"} {
		if !strings.Contains(final, want) {
			t.Fatalf("final merge prompt missing %q:\n%s", want, final)
		}
	}
}

func TestMergeSurfacesConflictNotes(t *testing.T) {
	completer := &unionCompleter{conflict: "A dates the discovery to 1953, B to 1952"}
	m := merge.New(completer, merge.Options{}, nil)
	combined, err := m.Merge(context.Background(), fiveContexts()[:2])
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !strings.Contains(combined.ConflictNotes, "1953") {
		t.Fatalf("expected conflict notes to be kept, got %q", combined.ConflictNotes)
	}
	if kc := combined.Context(); kc.ConflictNotes == "" || !strings.Contains(kc.PromptText(), "Conflicts between sources") {
		t.Fatalf("conflict notes missing from generation context: %+v", kc)
	}
}

func TestFallbackMergeIsDeterministic(t *testing.T) {
	opts := merge.Options{AbstractChars: 40}
	summaries, err := merge.New(nil, opts, nil).Summarize(context.Background(), fiveContexts())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	first := merge.FallbackMerge(summaries, opts)
	second := merge.FallbackMerge(summaries, opts)
	if fmt.Sprintf("%#v", first) != fmt.Sprintf("%#v", second) {
		t.Fatalf("fallback merge not idempotent:\n%#v\n%#v", first, second)
	}
	want := []string{"Cells", "Mitosis", "Meiosis", "DNA", "RNA", "Ribosomes", "Proteins"}
	if !slices.Equal(first.Concepts, want) {
		t.Fatalf("expected ordered union %v, got %v", want, first.Concepts)
	}
	if n := len([]rune(first.Abstract)); n > 40 {
		t.Fatalf("abstract not truncated: %d runes", n)
	}
}

func TestTruncateSummaryCapsLists(t *testing.T) {
	kc := contextFor("Big", []string{"a", "b", "c", "d"}, []string{"one", "two", "three"})
	s := merge.TruncateSummary(kc, merge.Options{MaxConcepts: 2, MaxFacts: 1})
	if !slices.Equal(s.Concepts, []string{"a", "b"}) || !slices.Equal(s.Facts, []string{"one"}) {
		t.Fatalf("unexpected truncated summary %+v", s)
	}
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	if _, err := merge.New(nil, merge.Options{}, nil).Merge(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
