// Package providers defines the pluggable capability contracts and builds the
// configured implementations.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/providers/deepseek"
	"clipforge/internal/providers/mock"
	"clipforge/internal/providers/openrouter"
	"clipforge/internal/providers/whisperapi"
	"clipforge/internal/providers/whisperx"
	"clipforge/internal/services"
)

// LanguageModel is the text-generation capability used across the pipeline.
// Implementations return safe defaults for malformed model output instead of
// errors; an error means the call itself failed.
type LanguageModel interface {
	Name() string
	Analyze(ctx context.Context, prompt string) (string, error)
	ExtractKeySegments(ctx context.Context, transcript content.TranscriptResult) ([]content.Segment, error)
	GenerateEditPlan(ctx context.Context, transcript content.TranscriptResult) (content.EditPlan, error)
	GenerateMetadata(ctx context.Context, sourceTitle, transcriptText, language string) (content.Metadata, error)
	GenerateSearchQueries(ctx context.Context, sc content.SearchContext) ([]content.SearchQuery, error)
	EvaluateVideos(ctx context.Context, candidates []content.VideoCandidate) ([]content.EvaluatedVideo, error)
}

// Transcriber is the speech-to-text capability.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, language string) (content.TranscriptResult, error)
	HealthCheck(ctx context.Context) error
}

// NewLanguageModel builds the language model selected by cfg.Providers.LLM.
func NewLanguageModel(cfg *config.Config, logger *slog.Logger) (LanguageModel, error) {
	batch := cfg.Pipeline.EvaluationBatch
	switch cfg.Providers.LLM {
	case "openrouter":
		return openrouter.New(cfg.LLM, logger, batch), nil
	case "deepseek":
		return deepseek.New(cfg.DeepSeek, logger, batch), nil
	case "mock":
		return mock.NewLanguageModel(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "providers", "build language model",
			fmt.Sprintf("unknown llm provider %q", cfg.Providers.LLM), nil)
	}
}

// NewTranscriber builds the transcriber selected by cfg.Providers.STT.
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	switch cfg.Providers.STT {
	case "whisperx":
		return whisperx.NewService(cfg.STT), nil
	case "whisperapi":
		return whisperapi.NewService(cfg.STT), nil
	case "mock":
		return mock.NewTranscriber(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "providers", "build transcriber",
			fmt.Sprintf("unknown stt provider %q", cfg.Providers.STT), nil)
	}
}
