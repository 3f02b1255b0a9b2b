package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"studyforge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRunner()
	c.normalizeLLM()
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	c.normalizeTools()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = filepath.Join(c.Paths.DataDir, "work")
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRunner() {
	c.Runner.WorkerID = strings.TrimSpace(c.Runner.WorkerID)
	if c.Runner.WorkerID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		c.Runner.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	if c.LLM.APIKey == "" {
		for _, key := range llmKeyEnv(c.LLM.Provider) {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.Provider != ProviderOpenRouter && c.LLM.BaseURL == defaultLLMBaseURL {
		// The OpenRouter endpoint is meaningless for the langchaingo providers.
		c.LLM.BaseURL = ""
	}
}

func llmKeyEnv(provider string) []string {
	keys := []string{"STUDYFORGE_LLM_API_KEY"}
	switch provider {
	case ProviderOpenRouter:
		keys = append(keys, "OPENROUTER_API_KEY")
	case ProviderOpenAI:
		keys = append(keys, "OPENAI_API_KEY")
	case ProviderAnthropic:
		keys = append(keys, "ANTHROPIC_API_KEY")
	}
	return keys
}

func (c *Config) normalizeBlob() error {
	c.Blob.Backend = strings.ToLower(strings.TrimSpace(c.Blob.Backend))
	if c.Blob.Backend == "" {
		c.Blob.Backend = BlobBackendFile
	}
	if c.Blob.Backend == BlobBackendFile {
		if strings.TrimSpace(c.Blob.Root) == "" {
			c.Blob.Root = filepath.Join(c.Paths.DataDir, defaultBlobDir)
		}
		var err error
		if c.Blob.Root, err = expandPath(c.Blob.Root); err != nil {
			return fmt.Errorf("blob.root: %w", err)
		}
	}
	c.Blob.Prefix = strings.Trim(strings.TrimSpace(c.Blob.Prefix), "/")
	if c.Blob.AccessKeyID == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Blob.AccessKeyID = value
		}
	}
	if c.Blob.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Blob.SecretAccessKey = value
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	defaults := []struct {
		field *string
		value string
	}{
		{&c.Render.PandocBinary, defaultPandocBinary},
		{&c.Extract.PDFToTextBinary, defaultPDFToTextBinary},
		{&c.Extract.FFmpegBinary, defaultFFmpegBinary},
		{&c.Extract.YTDLPBinary, defaultYTDLPBinary},
		{&c.Extract.WhisperXModel, defaultWhisperXModel},
	}
	for _, d := range defaults {
		*d.field = strings.TrimSpace(*d.field)
		if *d.field == "" {
			*d.field = d.value
		}
	}
	c.Extract.Language = strings.TrimSpace(c.Extract.Language)
	if code, ok := language.ISO2(c.Extract.Language); ok {
		c.Extract.Language = code
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
