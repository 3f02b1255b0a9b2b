// Package main hosts the studyforge CLI.
//
// The Cobra command tree enqueues ingest and generate jobs, inspects jobs,
// artifacts, and lineage straight from the SQLite store, runs a foreground
// worker, and reports readiness. The long-running daemon lives in
// cmd/studyforged; everything here works whether or not it is running.
package main
