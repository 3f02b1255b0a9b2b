// Package generation turns cleaned source text into knowledge cores and
// knowledge contexts into typed study artifacts.
//
// Both generators work over a Completer, a single JSON-mode completion call.
// NewCompleter selects the OpenRouter client or a langchaingo provider from
// configuration. Generators only produce content; thresholds and markup
// rules are enforced by the caller before anything is committed.
package generation
