package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"studyforge/internal/config"
	"studyforge/internal/deps"
	"studyforge/internal/generation"
	"studyforge/internal/store"
)

const llmCheckTimeout = 30 * time.Second

// HealthChecker is a provider that can confirm it is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckLLMFromConfig builds the configured completer and checks it.
func CheckLLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM provider"
	settings := cfg.GetLLM()
	if settings.APIKey == "" && settings.Provider != config.ProviderOllama {
		return Result{Name: name, Detail: "API key missing"}
	}
	backend, err := generation.NewCompleter(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	result := CheckLLM(ctx, name, backend)
	if result.Passed {
		result.Detail = fmt.Sprintf("%s reachable", backend.Model())
	}
	return result
}

// CheckLLM runs one health check with a bounded timeout.
func CheckLLM(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()
	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore reports schema and integrity problems in the job store.
func CheckStore(ctx context.Context, st *store.Store) Result {
	const name = "Job store"
	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	switch {
	case health.Error != "":
		return Result{Name: name, Detail: health.Error}
	case len(health.MissingTables) > 0:
		return Result{Name: name, Detail: fmt.Sprintf("missing tables: %v", health.MissingTables)}
	case !health.IntegrityCheck:
		return Result{Name: name, Detail: "integrity check failed"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema v%d, %d jobs, %d artifacts)",
		health.DBPath, health.SchemaVersion, health.TotalJobs, health.TotalArtifacts)}
}

// CheckSystemDeps evaluates the external tools for every source and
// artifact type. All are optional: a missing tool fails only the jobs that
// need it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{Name: "pdftotext", Command: cfg.Extract.PDFToTextBinary, Description: "pdf ingest", Optional: true},
		{Name: "ffmpeg", Command: cfg.Extract.FFmpegBinary, Description: "audio, video and youtube ingest", Optional: true},
		{Name: "uvx", Command: "uvx", Description: "WhisperX transcription", Optional: true},
		{Name: "yt-dlp", Command: cfg.Extract.YTDLPBinary, Description: "youtube ingest", Optional: true},
		{Name: "pandoc", Command: cfg.Render.PandocBinary, Description: "slides rendering", Optional: true},
	})
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
