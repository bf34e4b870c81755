package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var knownLLMProviders = map[string]struct{}{
	"openrouter": {},
	"deepseek":   {},
	"mock":       {},
}

var knownSTTProviders = map[string]struct{}{
	"whisperx":   {},
	"whisperapi": {},
	"mock":       {},
}

// Validate checks cross-field constraints. It runs after normalize, so paths
// are already expanded and provider names lowercased.
func (c *Config) Validate() error {
	var problems []string

	if _, ok := knownLLMProviders[c.Providers.LLM]; !ok {
		problems = append(problems, fmt.Sprintf("providers.llm: unknown provider %q", c.Providers.LLM))
	}
	if _, ok := knownSTTProviders[c.Providers.STT]; !ok {
		problems = append(problems, fmt.Sprintf("providers.stt: unknown provider %q", c.Providers.STT))
	}

	switch c.Storage.Backend {
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			problems = append(problems, "storage.local_dir: required for local backend")
		}
	case "s3":
		if strings.TrimSpace(c.Storage.S3Bucket) == "" {
			problems = append(problems, "storage.s3_bucket: required for s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	if c.Quality.ApprovalThreshold < 0 || c.Quality.ApprovalThreshold > 100 {
		problems = append(problems, "quality.approval_threshold: must be within [0, 100]")
	}
	if c.Quality.HighPriorityThreshold < 0 || c.Quality.HighPriorityThreshold > 100 {
		problems = append(problems, "quality.high_priority_threshold: must be within [0, 100]")
	}
	if c.Quality.HighPriorityThreshold < c.Quality.ApprovalThreshold {
		problems = append(problems, "quality.high_priority_threshold: must not be below approval_threshold")
	}

	if c.Pipeline.ChunkSize <= 0 {
		problems = append(problems, "pipeline.chunk_size: must be positive")
	}
	if c.Pipeline.RetryLimit < 0 {
		problems = append(problems, "pipeline.retry_limit: must not be negative")
	}
	if c.Pipeline.EvaluationBatch <= 0 {
		problems = append(problems, "pipeline.evaluation_batch: must be positive")
	}
	if len(c.Pipeline.TargetLanguages) == 0 {
		problems = append(problems, "pipeline.target_languages: at least one language required")
	}
	for _, lang := range c.Pipeline.TargetLanguages {
		if _, err := language.Parse(lang); err != nil {
			problems = append(problems, fmt.Sprintf("pipeline.target_languages: invalid tag %q", lang))
		}
	}

	if strings.TrimSpace(c.Catalog.SystemCreatorID) == "" {
		problems = append(problems, "catalog.system_creator_id: required")
	}
	if strings.TrimSpace(c.Catalog.DBPath) == "" {
		problems = append(problems, "catalog.db_path: required")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}
