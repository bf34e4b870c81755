package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Publisher moves approved jobs into the serving catalog.
type Publisher struct {
	cfg    *config.Config
	store  *Store
	logger *slog.Logger
}

// NewPublisher constructs the publish stage handler.
func NewPublisher(cfg *config.Config, store *Store, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, store: store, logger: logger}
}

// Prepare validates that the job carries everything a catalog entry needs.
func (p *Publisher) Prepare(_ context.Context, job *queue.Job) error {
	if job.ContentID != "" {
		// Already published; Execute will short-circuit.
		return nil
	}
	switch {
	case strings.TrimSpace(job.ClipKey) == "":
		return services.Wrap(services.ErrValidation, "publish", "prepare",
			fmt.Sprintf("job %d has no uploaded clip", job.ID), nil)
	case strings.TrimSpace(job.MetadataJSON) == "":
		return services.Wrap(services.ErrValidation, "publish", "prepare",
			fmt.Sprintf("job %d has no metadata", job.ID), nil)
	}
	job.InitProgress("Publishing", "Writing catalog entry")
	return nil
}

// Execute writes the catalog transaction and stores the content id on the
// job. A job that already has a content id is done; the catalog itself also
// dedupes by job id, covering a crash between commit and queue update.
func (p *Publisher) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, p.logger)

	if job.ContentID != "" {
		log.Info("job already published", slog.String("content_id", job.ContentID))
		return nil
	}

	var metas []content.Metadata
	if err := json.Unmarshal([]byte(job.MetadataJSON), &metas); err != nil {
		return services.Wrap(services.ErrValidation, "publish", "execute", "metadata json is corrupt", err)
	}

	var durationMs int64
	if job.EditPlanJSON != "" {
		var plan content.EditPlan
		if err := json.Unmarshal([]byte(job.EditPlanJSON), &plan); err == nil {
			durationMs = plan.TotalDurationMs
		}
	}

	contentID, err := p.store.Publish(ctx, PublishInput{
		JobID:        job.ID,
		SourceID:     job.SourceID,
		SourceURL:    job.SourceURL,
		ClipKey:      job.ClipKey,
		ThumbnailKey: job.ThumbnailKey,
		DurationMs:   durationMs,
		CreatorID:    p.cfg.Catalog.SystemCreatorID,
		QualityScore: job.QualityScore,
		Metadata:     metas,
	})
	if err != nil {
		return err
	}
	job.ContentID = contentID
	job.SetProgressComplete("Published", "Live in catalog")
	log.Info("job published", slog.String("content_id", contentID))
	return nil
}

// HealthCheck verifies the catalog database answers queries.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if _, err := p.store.Count(ctx); err != nil {
		return stage.Unhealthy("publish", err.Error())
	}
	return stage.Healthy("publish")
}
