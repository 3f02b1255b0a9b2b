// Package llm provides a JSON-mode chat completion client for OpenRouter and
// other OpenAI-compatible endpoints.
//
// Generation and merge collaborators use CompleteJSON to request structured
// payloads and DecodeLLMJSON to read them back, tolerating code fences.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Context cancellation aborts retries immediately.
package llm
