package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func choicesServer(t *testing.T, choice map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	server := choicesServer(t, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestCompleteJSONSendsPromptsAndHeaders(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if title := r.Header.Get("X-Title"); title != "studyforge" {
			t.Errorf("unexpected title header %q", title)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{
			map[string]any{"message": map[string]any{"content": `{"title":"x"}`}},
		}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "m", Title: "studyforge"})
	out, err := client.CompleteJSON(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"title":"x"}` {
		t.Fatalf("unexpected content %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user text" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Fatalf("expected json response format, got %v", got.ResponseFormat)
	}
}

func TestCompleteJSONRequiresInputs(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if _, err := client.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("expected error for missing system prompt")
	}
	if _, err := client.CompleteJSON(context.Background(), "sys", " "); err == nil {
		t.Fatal("expected error for missing user prompt")
	}
	if _, err := NewClient(Config{}).CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteJSONToolCallArguments(t *testing.T) {
	server := choicesServer(t, map[string]any{
		"finish_reason": "tool_calls",
		"message": map[string]any{
			"content": "",
			"tool_calls": []any{map[string]any{
				"type":     "function",
				"function": map[string]any{"name": "emit", "arguments": `{"cards":[]}`},
			}},
		},
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	out, err := client.CompleteJSON(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(out, `"cards"`) {
		t.Fatalf("expected tool call arguments, got %q", out)
	}
}

func TestCompleteJSONDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": `{"a":1}`}},
		"legacy": {"finish_reason": "stop", "text": `{"a":1}`},
	} {
		t.Run(name, func(t *testing.T) {
			server := choicesServer(t, choice)
			out, err := NewClient(Config{APIKey: "test", BaseURL: server.URL}).CompleteJSON(context.Background(), "s", "u")
			if err != nil {
				t.Fatalf("CompleteJSON: %v", err)
			}
			if out != `{"a":1}` {
				t.Fatalf("unexpected content %q", out)
			}
		})
	}
}

func TestEmptyContentErrorHasSnippet(t *testing.T) {
	server := choicesServer(t, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.CompleteJSON(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	var empty *emptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected emptyContentError, got %T", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{
			map[string]any{"message": map[string]any{"content": `{"ok":true}`}},
		}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"ok":true}`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{
			map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}},
		}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := retryPolicy{baseDelay: time.Second, maxDelay: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	var target struct {
		Title string `json:"title"`
	}
	inputs := []string{
		`{"title":"a"}`,
		"```json\n{\"title\":\"a\"}\n```",
		"Here you go: {\"title\":\"a\"} hope it helps",
	}
	for _, in := range inputs {
		target.Title = ""
		if err := DecodeLLMJSON(in, &target); err != nil {
			t.Fatalf("DecodeLLMJSON(%q): %v", in, err)
		}
		if target.Title != "a" {
			t.Fatalf("DecodeLLMJSON(%q) title = %q", in, target.Title)
		}
	}
	if err := DecodeLLMJSON("   ", &target); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if err := DecodeLLMJSON("no json here", &target); err == nil {
		t.Fatal("expected error for prose payload")
	}
}
