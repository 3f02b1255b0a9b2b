// Package store persists jobs, artifacts, derivation edges, and renderings in
// SQLite and exposes the queue primitives the runner depends on.
//
// ClaimNextJob moves exactly one pending job to running in a single UPDATE,
// so concurrent workers sharing a database never claim the same job.
// CommitBundle writes a handler's artifacts, edges, and renderings and
// completes the job in one transaction; the artifact graph rules are checked
// again inside that transaction and any violation rolls everything back.
// FailJob is best-effort. Jobs are never retried: a failed job stays failed.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package store
