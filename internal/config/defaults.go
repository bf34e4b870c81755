package config

const (
	defaultStagingDir      = "~/.local/share/clipforge/staging"
	defaultLogDir          = "~/.local/share/clipforge/logs"
	defaultAPIBind         = "127.0.0.1:7519"
	defaultStorageDir      = "~/.local/share/clipforge/objects"
	defaultCatalogDBPath   = "~/.local/share/clipforge/catalog.db"
	defaultSystemCreatorID = "system"

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 60
	defaultDeepSeekBaseURL   = "https://api.deepseek.com"
	defaultDeepSeekModel     = "deepseek-chat"
	defaultSTTBaseURL        = "https://api.openai.com/v1"
	defaultSTTModel          = "whisper-1"
	defaultWhisperXBinary    = "whisperx"
	defaultWhisperXModel     = "large-v3-turbo"

	defaultApprovalThreshold     = 70
	defaultHighPriorityThreshold = 85

	defaultChunkSize          = 10
	defaultRetryLimit         = 3
	defaultRetryBaseSeconds   = 2
	defaultMaxSkips           = 5
	defaultItemParallelism    = 2
	defaultQueriesPerLanguage = 3
	defaultEvaluationBatch    = 10

	defaultPresignTTLSeconds = 3600
	defaultMediaTimeout      = 600
	defaultFFmpegBinary      = "ffmpeg"
	defaultFetcherBinary     = "yt-dlp"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Providers: Providers{
			LLM: "openrouter",
			STT: "whisperx",
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		DeepSeek: DeepSeek{
			BaseURL:        defaultDeepSeekBaseURL,
			Model:          defaultDeepSeekModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		STT: STT{
			WhisperXBinary: defaultWhisperXBinary,
			WhisperXModel:  defaultWhisperXModel,
			BaseURL:        defaultSTTBaseURL,
			Model:          defaultSTTModel,
			TimeoutSeconds: 300,
		},
		Storage: Storage{
			Backend:           "local",
			LocalDir:          defaultStorageDir,
			PresignTTLSeconds: defaultPresignTTLSeconds,
		},
		Media: Media{
			FFmpegBinary:   defaultFFmpegBinary,
			FetcherBinary:  defaultFetcherBinary,
			TimeoutSeconds: defaultMediaTimeout,
		},
		Pipeline: Pipeline{
			ChunkSize:          defaultChunkSize,
			RetryLimit:         defaultRetryLimit,
			RetryBaseSeconds:   defaultRetryBaseSeconds,
			MaxSkips:           defaultMaxSkips,
			ItemParallelism:    defaultItemParallelism,
			TargetLanguages:    []string{"en", "ko"},
			Categories:         []string{"cooking", "fitness", "coding", "language", "music", "crafts"},
			QueriesPerLanguage: defaultQueriesPerLanguage,
			EvaluationBatch:    defaultEvaluationBatch,
		},
		Quality: Quality{
			ApprovalThreshold:     defaultApprovalThreshold,
			HighPriorityThreshold: defaultHighPriorityThreshold,
		},
		Catalog: Catalog{
			DBPath:          defaultCatalogDBPath,
			SystemCreatorID: defaultSystemCreatorID,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			HeartbeatTimeout:   120,
			DiscoveryInterval:  3600,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Review:         true,
			Publish:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
