package preflight

import (
	"context"

	"studyforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, blob, and LLM checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return append(CheckDirectories(cfg), CheckLLMFromConfig(ctx, cfg))
}

// CheckDirectories checks every directory cfg writes to, including the blob
// root for the file backend.
func CheckDirectories(cfg *config.Config) []Result {
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Blob.Backend == config.BlobBackendFile {
		results = append(results, CheckDirectoryAccess("Blob directory", cfg.Blob.Root))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
