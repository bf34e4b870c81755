package preflight

import (
	"context"

	"clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Storage.Backend == "local" && cfg.Storage.LocalDir != "" {
		results = append(results, CheckDirectoryAccess("Object store directory", cfg.Storage.LocalDir))
	}

	switch cfg.Providers.LLM {
	case "openrouter":
		results = append(results, CheckLLM(ctx, "OpenRouter LLM", llmConfigFromOpenRouter(cfg)))
	case "deepseek":
		results = append(results, CheckLLM(ctx, "DeepSeek LLM", llmConfigFromDeepSeek(cfg)))
	}

	return results
}
