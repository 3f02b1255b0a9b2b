// Package langchain adapts langchaingo chat models to the JSON completion
// contract used by the generation and merge collaborators.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"studyforge/internal/services/llm"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config selects and configures the backing provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// Completer issues system + human prompts through a langchaingo model.
type Completer struct {
	model     llms.Model
	modelName string
}

// New builds a Completer for the configured provider.
func New(cfg Config) (*Completer, error) {
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model), ollama.WithFormat("json")}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("langchain: openai api key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("langchain: anthropic api key required")
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("langchain: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("langchain: create %s model: %w", cfg.Provider, err)
	}
	return &Completer{model: model, modelName: cfg.Model}, nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, name string) *Completer {
	return &Completer{model: model, modelName: name}
}

// Model returns the configured model name.
func (c *Completer) Model() string { return c.modelName }

// CompleteJSON sends the prompts and returns the first choice's content.
func (c *Completer) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" || strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("langchain complete: system and user prompts required")
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}
	resp, err := c.model.GenerateContent(ctx, messages, llms.WithJSONMode(), llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("langchain complete: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("langchain complete: no response choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", errors.New("langchain complete: empty content")
	}
	return content, nil
}

// HealthCheck asks the model for a trivial JSON object.
func (c *Completer) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("langchain health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("langchain health: unexpected response")
	}
	return nil
}
