package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"studyforge/internal/artifact"
	"studyforge/internal/logging"
	"studyforge/internal/services"
	"studyforge/internal/services/llm"
)

// ArtifactGenerator produces typed generated models from a knowledge
// context.
type ArtifactGenerator struct {
	completer Completer
	logger    *slog.Logger
}

func NewArtifactGenerator(completer Completer, logger *slog.Logger) *ArtifactGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ArtifactGenerator{completer: completer, logger: logging.NewComponentLogger(logger, "generation")}
}

// Generate requests a target-typed artifact for kc.
func (g *ArtifactGenerator) Generate(ctx context.Context, kc artifact.KnowledgeContext, target artifact.Type) (artifact.Generated, error) {
	if g.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", string(target), "no completer configured", nil)
	}
	system, ok := artifactPrompts[target]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "generation", string(target), "not a generated type", nil)
	}
	if kc.Empty() {
		return nil, services.Wrap(services.ErrValidation, "generation", string(target), "knowledge context is empty", nil)
	}

	model, err := artifact.NewModel(target)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "generation", string(target), "build model", err)
	}
	raw, err := g.completer.CompleteJSON(ctx, system, artifactUserPrompt(target, kc))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "generation", string(target), "completion failed", err)
	}
	if err := llm.DecodeLLMJSON(raw, model); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "generation", string(target), "decode response", err)
	}
	finalize(model, kc)
	g.logger.Debug("artifact generated",
		logging.String("target", string(target)),
		logging.String("title", model.DisplayTitle()),
	)
	return model, nil
}

// finalize fills titles and question ids the model left blank.
func finalize(model artifact.Generated, kc artifact.KnowledgeContext) {
	defaultTitle := func(current *string, suffix string) {
		if *current == "" {
			*current = kc.Title + " " + suffix
		}
	}
	switch m := model.(type) {
	case *artifact.Quiz:
		defaultTitle(&m.Title, "Quiz")
		for i := range m.Questions {
			if m.Questions[i].ID == "" {
				m.Questions[i].ID = strconv.Itoa(i + 1)
			}
		}
	case *artifact.Exam:
		defaultTitle(&m.Title, "Exam")
		for i := range m.Questions {
			if m.Questions[i].ID == "" {
				m.Questions[i].ID = fmt.Sprintf("Q%d", i+1)
			}
		}
	case *artifact.Flashcards:
		defaultTitle(&m.Title, "Flashcards")
	case *artifact.Notes:
		defaultTitle(&m.Title, "Notes")
	case *artifact.Slides:
		defaultTitle(&m.Title, "Slides")
		if m.AudienceLevel == "" {
			m.AudienceLevel = "intermediate"
		}
	}
}
