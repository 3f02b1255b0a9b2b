// Package preflight provides readiness checks for the filesystem, the job
// store, the blob store, the LLM provider, and the external tools that
// studyforge depends on.
//
// The worker daemon runs RunAll once at startup and logs every failure; the
// CLI "studyforge status" command renders the same results as a table.
// Missing optional tools only disable the source or artifact types that use
// them.
package preflight
