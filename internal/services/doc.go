// Package services defines shared utilities consumed by the job handlers and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, project IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures classify
//     consistently (validation, not found, semantic, external tool).
//   - Details and JobMessage, which flatten a wrapped failure into the
//     human-readable message stored on a failed job.
package services
