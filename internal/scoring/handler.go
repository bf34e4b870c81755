package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/metagen"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Handler generates metadata for a finished edit, scores the job, and routes
// it to the review queue or automatic rejection. Routing picks the done
// status itself, so this stage transitions the job inside Execute.
type Handler struct {
	cfg    *config.Config
	meta   *metagen.Generator
	logger *slog.Logger
}

// NewHandler constructs the scoring stage handler.
func NewHandler(cfg *config.Config, meta *metagen.Generator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, meta: meta, logger: logger}
}

// Prepare validates that the edit stage finished.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	switch {
	case strings.TrimSpace(job.TranscriptJSON) == "":
		return services.Wrap(services.ErrValidation, "score", "prepare",
			fmt.Sprintf("job %d has no transcript", job.ID), nil)
	case strings.TrimSpace(job.EditPlanJSON) == "":
		return services.Wrap(services.ErrValidation, "score", "prepare",
			fmt.Sprintf("job %d has no edit plan", job.ID), nil)
	case strings.TrimSpace(job.ClipKey) == "":
		return services.Wrap(services.ErrValidation, "score", "prepare",
			fmt.Sprintf("job %d has no uploaded clip", job.ID), nil)
	}
	job.InitProgress("Scoring", "Generating metadata")
	return nil
}

// Execute attaches metadata, computes the quality score, and moves the job
// to pending_approval or rejected.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, h.logger)

	var transcript content.TranscriptResult
	if err := json.Unmarshal([]byte(job.TranscriptJSON), &transcript); err != nil {
		return services.Wrap(services.ErrValidation, "score", "execute", "transcript json is corrupt", err)
	}
	var plan content.EditPlan
	if err := json.Unmarshal([]byte(job.EditPlanJSON), &plan); err != nil {
		return services.Wrap(services.ErrValidation, "score", "execute", "edit plan json is corrupt", err)
	}
	var evaluation *content.EvaluatedVideo
	if job.EvaluationJSON != "" {
		var eval content.EvaluatedVideo
		if err := json.Unmarshal([]byte(job.EvaluationJSON), &eval); err != nil {
			log.Warn("stored evaluation is corrupt; scoring without it", logging.Error(err))
		} else {
			evaluation = &eval
		}
	}

	languages := metagen.Languages(job.Language, h.cfg.Pipeline.TargetLanguages)
	metas, err := h.meta.Generate(ctx, job.Title, transcript.Text, languages)
	if err != nil {
		return err
	}
	encodedMetas, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	job.MetadataJSON = string(encodedMetas)
	job.SetProgress("Scoring", "Computing quality score", 60)

	score := Evaluate(Input{
		Transcript: transcript,
		EditPlan:   plan,
		Metadata:   metas[0],
		Evaluation: evaluation,
	})
	encodedScore, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	job.ScoreJSON = string(encodedScore)
	job.QualityScore = score.Overall

	next, priority := Route(score, h.cfg.Quality)
	job.ReviewPriority = priority
	if next == queue.StatusRejected {
		job.ReviewNote = fmt.Sprintf("auto-rejected: quality score %d below threshold %d",
			score.Overall, h.cfg.Quality.ApprovalThreshold)
	}
	if err := job.TransitionTo(next); err != nil {
		return err
	}
	job.SetProgressComplete("Scored", fmt.Sprintf("Score %d, routed to %s", score.Overall, next))
	log.Info("job scored",
		slog.Int("score", score.Overall),
		slog.String("routed_to", string(next)),
		slog.Int("priority", priority))
	return nil
}

// HealthCheck reports readiness; scoring is pure computation plus remote
// metadata calls.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("score")
}
