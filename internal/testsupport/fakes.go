package testsupport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"studyforge/internal/artifact"
	"studyforge/internal/extract"
	"studyforge/internal/merge"
)

// FakeExtractor returns Text for every source.
type FakeExtractor struct {
	Text     string
	Metadata map[string]string
	Err      error

	mu    sync.Mutex
	Calls []string
}

func (f *FakeExtractor) Extract(_ context.Context, sourceType artifact.Type, ref string) (extract.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, string(sourceType)+":"+ref)
	f.mu.Unlock()
	if f.Err != nil {
		return extract.Result{}, f.Err
	}
	return extract.Result{Text: f.Text, Metadata: f.Metadata}, nil
}

// FakeCoreGenerator builds a SampleCore titled after the requested title.
type FakeCoreGenerator struct {
	Core *artifact.KnowledgeCore
	Err  error

	mu    sync.Mutex
	Texts []string
}

func (f *FakeCoreGenerator) Generate(_ context.Context, text, title string) (*artifact.KnowledgeCore, error) {
	f.mu.Lock()
	f.Texts = append(f.Texts, text)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Core != nil {
		return f.Core, nil
	}
	return SampleCore(title), nil
}

// FakeArtifactGenerator returns Models[target], or a minimal passing model
// when none is configured.
type FakeArtifactGenerator struct {
	Models map[artifact.Type]artifact.Generated
	Err    error

	mu       sync.Mutex
	Contexts []artifact.KnowledgeContext
}

func (f *FakeArtifactGenerator) Generate(_ context.Context, kc artifact.KnowledgeContext, target artifact.Type) (artifact.Generated, error) {
	f.mu.Lock()
	f.Contexts = append(f.Contexts, kc)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if model, ok := f.Models[target]; ok {
		return model, nil
	}
	return SampleModel(target), nil
}

// CallCount reports how many times Generate ran.
func (f *FakeArtifactGenerator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Contexts)
}

// SampleModel returns a model of type t that meets its content threshold.
func SampleModel(t artifact.Type) artifact.Generated {
	switch t {
	case artifact.TypeQuiz:
		return SampleQuiz(artifact.MinQuizQuestions)
	case artifact.TypeExam:
		return SampleExam(artifact.MinExamQuestions)
	case artifact.TypeFlashcards:
		return SampleFlashcards(artifact.MinFlashcards)
	case artifact.TypeNotes:
		return SampleNotes()
	case artifact.TypeSlides:
		return SampleSlides(artifact.MinSlides)
	}
	return nil
}

// FakeRenderer records a rendering at the artifact's object key unless
// Nil is set, in which case it produces nothing.
type FakeRenderer struct {
	Nil bool
	Err error

	mu    sync.Mutex
	Calls int
}

func (f *FakeRenderer) Render(_ context.Context, model artifact.Generated, projectID, artifactID string) (*artifact.Rendering, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	format := artifact.BinaryFormat(model.ArtifactType())
	if f.Nil || format == "" {
		return nil, nil
	}
	return &artifact.Rendering{Format: format, StoragePath: artifact.ObjectKey(projectID, artifactID, format)}, nil
}

// FakeMerger unions concepts in input order and reports conflicts when
// Conflict is set.
type FakeMerger struct {
	Conflict string
	Err      error

	mu     sync.Mutex
	Inputs [][]artifact.KnowledgeContext
}

func (f *FakeMerger) Merge(_ context.Context, contexts []artifact.KnowledgeContext) (merge.Combined, error) {
	f.mu.Lock()
	f.Inputs = append(f.Inputs, contexts)
	f.mu.Unlock()
	if f.Err != nil {
		return merge.Combined{}, f.Err
	}
	if len(contexts) == 0 {
		return merge.Combined{}, errors.New("no contexts")
	}
	var out merge.Combined
	seen := map[string]bool{}
	for _, kc := range contexts {
		out.SourceTitles = append(out.SourceTitles, kc.Title)
		for _, c := range kc.Concepts {
			if !seen[c] {
				seen[c] = true
				out.Concepts = append(out.Concepts, c)
			}
		}
		out.Facts = append(out.Facts, kc.Facts...)
		if kc.Summary != "" {
			out.Abstract = strings.TrimSpace(out.Abstract + " " + kc.Summary)
		}
	}
	out.ConflictNotes = f.Conflict
	return out, nil
}

// FakeCompleter answers every prompt with Response.
type FakeCompleter struct {
	Response string
	Err      error

	mu      sync.Mutex
	Prompts []string
}

func (f *FakeCompleter) CompleteJSON(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.Prompts = append(f.Prompts, userPrompt)
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}
