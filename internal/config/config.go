package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the SQLite job and artifact store.
type Store struct {
	// Path defaults to <data_dir>/studyforge.db.
	Path string `toml:"path"`
}

// Runner contains configuration for the job polling loop.
type Runner struct {
	PollIntervalSeconds       int    `toml:"poll_interval_seconds"`
	ErrorRetryIntervalSeconds int    `toml:"error_retry_interval_seconds"`
	StuckJobMinutes           int    `toml:"stuck_job_minutes"`
	WorkerID                  string `toml:"worker_id"`
}

// LLM contains shared LLM connection settings used by generation and merging.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Merge contains the bounds applied when collapsing multiple parent contexts.
type Merge struct {
	MaxConcepts        int `toml:"max_concepts"`
	MaxFacts           int `toml:"max_facts"`
	AbstractChars      int `toml:"abstract_chars"`
	MaxDepth           int `toml:"max_depth"`
	SummaryConcurrency int `toml:"summary_concurrency"`
}

// Blob contains object storage configuration for rendered binaries and
// archived sources.
type Blob struct {
	Backend         string `toml:"backend"`
	Root            string `toml:"root"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Render contains binary rendering settings.
type Render struct {
	PandocBinary string `toml:"pandoc_binary"`
}

// Extract contains source text extraction settings.
type Extract struct {
	PDFToTextBinary string `toml:"pdftotext_binary"`
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	YTDLPBinary     string `toml:"ytdlp_binary"`
	WhisperXModel   string `toml:"whisperx_model"`
	WhisperXCUDA    bool   `toml:"whisperx_cuda"`
	Language        string `toml:"language"`
	MinTextChars    int    `toml:"min_text_chars"`
	ArchiveSources  bool   `toml:"archive_sources"`
}

// Notifications contains ntfy settings for job outcome notices.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyCompleted       bool   `toml:"notify_completed"`
	NotifyFailed          bool   `toml:"notify_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for studyforge.
//
// Configuration sections by subsystem:
//   - Paths: data, scratch, and log directories
//   - Store: SQLite database location
//   - Runner: polling and recovery intervals
//   - LLM: provider used for knowledge cores, generation, and merging
//   - Merge: multi-source context bounds
//   - Blob: local or S3 object storage
//   - Render / Extract: external tool binaries
//   - Notifications: ntfy job outcome notices
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Runner  Runner  `toml:"runner"`
	LLM     LLM     `toml:"llm"`
	Merge   Merge   `toml:"merge"`
	Blob    Blob    `toml:"blob"`
	Render  Render  `toml:"render"`
	Extract Extract `toml:"extract"`

	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/studyforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The string result is
// the resolved path and the bool reports whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("studyforge.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Store.Path)}
	if c.Blob.Backend == BlobBackendFile {
		dirs = append(dirs, c.Blob.Root)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the flock file guarding a single worker daemon per data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "studyforge.lock")
}

// PIDPath is where the running daemon records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "studyforged.pid")
}

// PollInterval is the idle sleep between empty claims.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Runner.PollIntervalSeconds) * time.Second
}

// ErrorRetryInterval is the sleep after a failed claim.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Runner.ErrorRetryIntervalSeconds) * time.Second
}

// StuckJobAge is how long a job may stay running before it is reaped.
func (c *Config) StuckJobAge() time.Duration {
	return time.Duration(c.Runner.StuckJobMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved LLM connection settings.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
