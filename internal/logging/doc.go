// Package logging assembles structured slog loggers and formatting helpers used
// across studyforge.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so runner and handler code can
// tag log lines with job, project, and stage identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
