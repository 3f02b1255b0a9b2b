// Package blob stores rendered artifact binaries and archived sources.
//
// Two backends share the Store interface: a local directory tree and an S3
// (or S3-compatible) bucket. Keys are slash-separated and deterministic, so
// writing the same key twice overwrites rather than leaking objects.
package blob
