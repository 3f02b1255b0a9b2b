package config

const (
	defaultDataDir               = "~/.local/share/studyforge"
	defaultStoreFile             = "studyforge.db"
	defaultBlobDir               = "blobs"
	defaultPollIntervalSeconds   = 2
	defaultErrorRetrySeconds     = 5
	defaultStuckJobMinutes       = 120
	defaultLLMProvider           = ProviderOpenRouter
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-2.5-flash"
	defaultLLMReferer            = "https://github.com/studyforge/studyforge"
	defaultLLMTitle              = "studyforge"
	defaultLLMTimeoutSeconds     = 120
	defaultMergeMaxConcepts      = 7
	defaultMergeMaxFacts         = 7
	defaultMergeAbstractChars    = 500
	defaultMergeMaxDepth         = 16
	defaultMergeConcurrency      = 4
	defaultPandocBinary          = "pandoc"
	defaultPDFToTextBinary       = "pdftotext"
	defaultFFmpegBinary          = "ffmpeg"
	defaultYTDLPBinary           = "yt-dlp"
	defaultWhisperXModel         = "large-v3"
	defaultMinTextChars          = 50
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultS3Region              = "us-east-1"
	defaultNtfyTimeoutSeconds    = 10
)

// LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
)

// Blob backends.
const (
	BlobBackendFile = "file"
	BlobBackendS3   = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		// work_dir, log_dir, store.path and blob.root derive from data_dir
		// during normalize unless set explicitly.
		Paths: Paths{DataDir: defaultDataDir},
		Runner: Runner{
			PollIntervalSeconds:       defaultPollIntervalSeconds,
			ErrorRetryIntervalSeconds: defaultErrorRetrySeconds,
			StuckJobMinutes:           defaultStuckJobMinutes,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Merge: Merge{
			MaxConcepts:        defaultMergeMaxConcepts,
			MaxFacts:           defaultMergeMaxFacts,
			AbstractChars:      defaultMergeAbstractChars,
			MaxDepth:           defaultMergeMaxDepth,
			SummaryConcurrency: defaultMergeConcurrency,
		},
		Blob: Blob{
			Backend: BlobBackendFile,
			Region:  defaultS3Region,
		},
		Render: Render{PandocBinary: defaultPandocBinary},
		Extract: Extract{
			PDFToTextBinary: defaultPDFToTextBinary,
			FFmpegBinary:    defaultFFmpegBinary,
			YTDLPBinary:     defaultYTDLPBinary,
			WhisperXModel:   defaultWhisperXModel,
			MinTextChars:    defaultMinTextChars,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			NotifyFailed:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
