package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Providers selects the concrete capability implementations by name.
type Providers struct {
	LLM string `toml:"llm"`
	STT string `toml:"stt"`
}

// LLM contains connection settings for the OpenRouter-compatible provider.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DeepSeek contains connection settings for the DeepSeek provider.
type DeepSeek struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// STT contains speech-to-text provider settings.
type STT struct {
	WhisperXBinary string `toml:"whisperx_binary"`
	WhisperXModel  string `toml:"whisperx_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage selects and configures the object storage boundary.
type Storage struct {
	Backend            string `toml:"backend"` // "local" or "s3"
	LocalDir           string `toml:"local_dir"`
	S3Bucket           string `toml:"s3_bucket"`
	S3Region           string `toml:"s3_region"`
	S3Prefix           string `toml:"s3_prefix"`
	PresignTTLSeconds  int    `toml:"presign_ttl_seconds"`
	S3UsePathStyle     bool   `toml:"s3_use_path_style"`
	S3EndpointOverride string `toml:"s3_endpoint"`
}

// Media configures the black-box media commands.
type Media struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FetcherBinary  string `toml:"fetcher_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains chunked-step tuning and discovery settings.
type Pipeline struct {
	ChunkSize          int      `toml:"chunk_size"`
	RetryLimit         int      `toml:"retry_limit"`
	RetryBaseSeconds   int      `toml:"retry_base_seconds"`
	MaxSkips           int      `toml:"max_skips"`
	ItemParallelism    int      `toml:"item_parallelism"`
	TargetLanguages    []string `toml:"target_languages"`
	Categories         []string `toml:"categories"`
	QueriesPerLanguage int      `toml:"queries_per_language"`
	EvaluationBatch    int      `toml:"evaluation_batch"`
}

// Quality contains the scoring thresholds that gate review routing.
type Quality struct {
	ApprovalThreshold     int `toml:"approval_threshold"`
	HighPriorityThreshold int `toml:"high_priority_threshold"`
}

// Catalog configures the serving catalog boundary.
type Catalog struct {
	DBPath          string `toml:"db_path"`
	SystemCreatorID string `toml:"system_creator_id"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	DiscoveryInterval  int `toml:"discovery_interval"` // seconds; 0 disables discovery sweeps
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Review         bool   `toml:"review"`
	Publish        bool   `toml:"publish"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Providers     Providers     `toml:"providers"`
	LLM           LLM           `toml:"llm"`
	DeepSeek      DeepSeek      `toml:"deepseek"`
	STT           STT           `toml:"stt"`
	Storage       Storage       `toml:"storage"`
	Media         Media         `toml:"media"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Quality       Quality       `toml:"quality"`
	Catalog       Catalog       `toml:"catalog"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. Missing files fall
// back to defaults. The returned config has all path fields expanded and env
// fallbacks applied; a .env file next to the working directory is honored for
// API keys so secrets can stay out of the TOML file.
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

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()
	cfg.applyEnvFallbacks()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvFallbacks() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("CLIPFORGE_LLM_API_KEY")
	}
	if c.DeepSeek.APIKey == "" {
		c.DeepSeek.APIKey = os.Getenv("CLIPFORGE_DEEPSEEK_API_KEY")
	}
	if c.STT.APIKey == "" {
		c.STT.APIKey = os.Getenv("CLIPFORGE_STT_API_KEY")
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return err
	}
	if c.Catalog.DBPath, err = expandPath(c.Catalog.DBPath); err != nil {
		return err
	}
	c.Providers.LLM = strings.ToLower(strings.TrimSpace(c.Providers.LLM))
	c.Providers.STT = strings.ToLower(strings.TrimSpace(c.Providers.STT))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	return nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.LogDir}
	if c.Storage.Backend == "local" && c.Storage.LocalDir != "" {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	if c.Catalog.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.Catalog.DBPath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample config to path, refusing to clobber
// an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Clean(trimmed), nil
}
