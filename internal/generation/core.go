package generation

import (
	"context"
	"log/slog"
	"strings"

	"studyforge/internal/artifact"
	"studyforge/internal/logging"
	"studyforge/internal/services"
	"studyforge/internal/services/llm"
)

// maxSourceRunes bounds the source text sent in one knowledge core request.
const maxSourceRunes = 120_000

// KnowledgeCoreGenerator synthesizes a knowledge core from source text.
type KnowledgeCoreGenerator struct {
	completer Completer
	logger    *slog.Logger
}

func NewKnowledgeCoreGenerator(completer Completer, logger *slog.Logger) *KnowledgeCoreGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &KnowledgeCoreGenerator{completer: completer, logger: logging.NewComponentLogger(logger, "generation")}
}

// Generate asks the completer for a knowledge core. title is the fallback
// when the response omits one.
func (g *KnowledgeCoreGenerator) Generate(ctx context.Context, text, title string) (*artifact.KnowledgeCore, error) {
	if g.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "knowledge core", "no completer configured", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "generation", "knowledge core", "source text is empty", nil)
	}
	if r := []rune(text); len(r) > maxSourceRunes {
		g.logger.Info("source text clipped for knowledge core",
			logging.Int("runes", len(r)),
			logging.Int("limit", maxSourceRunes),
		)
		text = string(r[:maxSourceRunes])
	}

	raw, err := g.completer.CompleteJSON(ctx, knowledgeCoreSystemPrompt, knowledgeCoreUserPrompt(title, text))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "generation", "knowledge core", "completion failed", err)
	}
	var core artifact.KnowledgeCore
	if err := llm.DecodeLLMJSON(raw, &core); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "generation", "knowledge core", "decode response", err)
	}
	if strings.TrimSpace(core.Title) == "" {
		core.Title = title
	}
	return &core, nil
}
