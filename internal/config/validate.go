package config

import (
	"errors"
	"fmt"
	"strings"

	"studyforge/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateRunner,
		c.validateLLM,
		c.validateMerge,
		c.validateBlob,
		c.validateExtract,
		c.validateNotifications,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRunner() error {
	return ensurePositiveMap(map[string]int{
		"runner.poll_interval_seconds":        c.Runner.PollIntervalSeconds,
		"runner.error_retry_interval_seconds": c.Runner.ErrorRetryIntervalSeconds,
		"runner.stuck_job_minutes":            c.Runner.StuckJobMinutes,
	})
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want openrouter, openai, anthropic, or ollama)", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMerge() error {
	return ensurePositiveMap(map[string]int{
		"merge.max_concepts":        c.Merge.MaxConcepts,
		"merge.max_facts":           c.Merge.MaxFacts,
		"merge.abstract_chars":      c.Merge.AbstractChars,
		"merge.max_depth":           c.Merge.MaxDepth,
		"merge.summary_concurrency": c.Merge.SummaryConcurrency,
	})
}

func (c *Config) validateBlob() error {
	switch c.Blob.Backend {
	case BlobBackendFile:
		if c.Blob.Root == "" {
			return errors.New("blob.root must be set for the file backend")
		}
	case BlobBackendS3:
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			return errors.New("blob.bucket must be set for the s3 backend")
		}
		if (c.Blob.AccessKeyID == "") != (c.Blob.SecretAccessKey == "") {
			return errors.New("blob.access_key_id and blob.secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("blob.backend: unsupported value %q (want file or s3)", c.Blob.Backend)
	}
	return nil
}

func (c *Config) validateExtract() error {
	if c.Extract.MinTextChars <= 0 {
		return errors.New("extract.min_text_chars must be positive")
	}
	if lang := c.Extract.Language; lang != "" && !language.Supported(lang) {
		return fmt.Errorf("extract.language: %q is not a supported transcription language", lang)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !strings.HasPrefix(c.Notifications.NtfyTopic, "http://") && !strings.HasPrefix(c.Notifications.NtfyTopic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL")
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
