package generation

import (
	"context"
	"fmt"
	"strings"

	"studyforge/internal/config"
	"studyforge/internal/services"
	"studyforge/internal/services/langchain"
	"studyforge/internal/services/llm"
)

// Completer issues one JSON-mode completion.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Backend is a Completer that can also report its model and health.
type Backend interface {
	Completer
	Model() string
	HealthCheck(ctx context.Context) error
}

// NewCompleter builds the backend named by llm.provider.
func NewCompleter(cfg *config.Config) (Backend, error) {
	settings := cfg.GetLLM()
	switch strings.ToLower(settings.Provider) {
	case "", config.ProviderOpenRouter:
		return llm.NewClient(llm.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			Referer:        settings.Referer,
			Title:          settings.Title,
			TimeoutSeconds: settings.TimeoutSeconds,
		}), nil
	case config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderOllama:
		completer, err := langchain.New(langchain.Config{
			Provider: settings.Provider,
			APIKey:   settings.APIKey,
			BaseURL:  settings.BaseURL,
			Model:    settings.Model,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "generation", "build completer", settings.Provider, err)
		}
		return completer, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "generation", "build completer",
			fmt.Sprintf("unsupported provider %q", settings.Provider), nil)
	}
}
