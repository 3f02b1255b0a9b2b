package langchain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"studyforge/internal/services/langchain"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestCompleteJSONSendsSystemAndHuman(t *testing.T) {
	model := &fakeModel{reply: ` {"ok":true} `}
	c := langchain.NewWithModel(model, "demo")
	out, err := c.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected output %q", out)
	}
	if len(model.messages) != 2 || model.messages[0].Role != llms.ChatMessageTypeSystem || model.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected messages %+v", model.messages)
	}
	if c.Model() != "demo" {
		t.Fatalf("unexpected model name %q", c.Model())
	}
}

func TestCompleteJSONErrors(t *testing.T) {
	c := langchain.NewWithModel(&fakeModel{err: errors.New("down")}, "demo")
	if _, err := c.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected provider error")
	}
	empty := langchain.NewWithModel(&fakeModel{reply: "  "}, "demo")
	if _, err := empty.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected empty content error")
	}
	if _, err := empty.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("expected prompt validation error")
	}
}

func TestHealthCheck(t *testing.T) {
	if err := langchain.NewWithModel(&fakeModel{reply: `{"ok":true}`}, "m").HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if err := langchain.NewWithModel(&fakeModel{reply: `{"ok":false}`}, "m").HealthCheck(context.Background()); err == nil {
		t.Fatal("expected unhealthy response to fail")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := langchain.New(langchain.Config{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := langchain.New(langchain.Config{Provider: "openai"}); err == nil {
		t.Fatal("expected missing key error")
	}
}
