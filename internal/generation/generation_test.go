package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studyforge/internal/artifact"
	"studyforge/internal/config"
	"studyforge/internal/generation"
	"studyforge/internal/services"
)

type scriptedCompleter struct {
	response string
	err      error
	system   string
	user     string
}

func (s *scriptedCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.response, s.err
}

func TestKnowledgeCoreGeneratorDecodesFencedJSON(t *testing.T) {
	completer := &scriptedCompleter{response: "```json\n" + `{"summary":"Cells.","concepts":[{"name":"Cell","description":"Unit of life","importance_score":9}]}` + "\n```"}
	gen := generation.NewKnowledgeCoreGenerator(completer, nil)

	core, err := gen.Generate(context.Background(), "Cells are the basic unit of life.", "Biology 101")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if core.Title != "Biology 101" {
		t.Fatalf("expected fallback title, got %q", core.Title)
	}
	if len(core.Concepts) != 1 || core.Concepts[0].Name != "Cell" {
		t.Fatalf("unexpected concepts %+v", core.Concepts)
	}
	if !strings.Contains(completer.user, "Cells are the basic unit") {
		t.Fatalf("source text missing from prompt: %q", completer.user)
	}
}

func TestKnowledgeCoreGeneratorErrors(t *testing.T) {
	gen := generation.NewKnowledgeCoreGenerator(&scriptedCompleter{err: errors.New("503")}, nil)
	if _, err := gen.Generate(context.Background(), "text", "t"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	gen = generation.NewKnowledgeCoreGenerator(&scriptedCompleter{response: "not json"}, nil)
	if _, err := gen.Generate(context.Background(), "text", "t"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if _, err := gen.Generate(context.Background(), "   ", "t"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty text, got %v", err)
	}
	if _, err := generation.NewKnowledgeCoreGenerator(nil, nil).Generate(context.Background(), "x", "t"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without completer, got %v", err)
	}
}

func TestArtifactGeneratorFillsDefaults(t *testing.T) {
	completer := &scriptedCompleter{response: `{"questions":[{"text":"Q?","options":["a","b"],"correct_answer_index":1}]}`}
	gen := generation.NewArtifactGenerator(completer, nil)
	kc := artifact.KnowledgeContext{Title: "Cells", Concepts: []string{"Cell"}, Facts: []string{"Cells divide."}}

	model, err := gen.Generate(context.Background(), kc, artifact.TypeQuiz)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	quiz, ok := model.(*artifact.Quiz)
	if !ok {
		t.Fatalf("expected *Quiz, got %T", model)
	}
	if quiz.Title != "Cells Quiz" || quiz.Questions[0].ID != "1" {
		t.Fatalf("defaults not applied: %+v", quiz)
	}
	if !strings.Contains(completer.system, "correct_answer_index") {
		t.Fatalf("quiz prompt not used: %q", completer.system)
	}
	if !strings.Contains(completer.user, "Cells divide.") {
		t.Fatalf("context missing from prompt: %q", completer.user)
	}
}

func TestArtifactGeneratorRejectsBadInput(t *testing.T) {
	gen := generation.NewArtifactGenerator(&scriptedCompleter{response: "{}"}, nil)
	kc := artifact.KnowledgeContext{Title: "x", Facts: []string{"f"}}
	if _, err := gen.Generate(context.Background(), kc, artifact.TypeKnowledgeCore); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for non-generated target, got %v", err)
	}
	if _, err := gen.Generate(context.Background(), artifact.KnowledgeContext{}, artifact.TypeNotes); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty context, got %v", err)
	}
}

func TestNewCompleterSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	backend, err := generation.NewCompleter(&cfg)
	if err != nil {
		t.Fatalf("NewCompleter openrouter: %v", err)
	}
	if backend.Model() != cfg.LLM.Model {
		t.Fatalf("unexpected model %q", backend.Model())
	}

	cfg.LLM.Provider = "carrier-pigeon"
	if _, err := generation.NewCompleter(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
