// Package editplan turns a transcript into a rendered highlight clip: key
// segment analysis, model-driven clip selection, and the ffmpeg render.
package editplan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/providers"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Analyzer extracts the key transcript segments that seed clip selection.
type Analyzer struct {
	model  providers.LanguageModel
	logger *slog.Logger
}

// NewAnalyzer constructs the analysis stage handler.
func NewAnalyzer(model providers.LanguageModel, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{model: model, logger: logger}
}

// Prepare validates that a transcript exists.
func (a *Analyzer) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.TranscriptJSON) == "" {
		return services.Wrap(services.ErrValidation, "analyze", "prepare",
			fmt.Sprintf("job %d has no transcript", job.ID), nil)
	}
	job.InitProgress("Analyzing", "Extracting key segments")
	return nil
}

// Execute asks the model for key segments and stores them. An empty segment
// list is a legitimate outcome; the edit stage falls back to a single clip.
func (a *Analyzer) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, a.logger)

	var transcript content.TranscriptResult
	if err := json.Unmarshal([]byte(job.TranscriptJSON), &transcript); err != nil {
		return services.Wrap(services.ErrValidation, "analyze", "execute", "transcript json is corrupt", err)
	}

	segments, err := a.model.ExtractKeySegments(ctx, transcript)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	job.SegmentsJSON = string(encoded)
	job.SetProgressComplete("Analyzed", fmt.Sprintf("%d key segments found", len(segments)))
	log.Info("transcript analyzed", slog.Int("segments", len(segments)))
	return nil
}

// HealthCheck reports readiness; the language model is remote, so there is
// nothing local to probe.
func (a *Analyzer) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("analyze")
}
