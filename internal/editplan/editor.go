package editplan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/objectstore"
	"clipforge/internal/providers"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/textutil"
)

// Editor generates the edit plan, renders the clip, and uploads the result.
// It also serves the needs_edit loop: a reviewer sending a job back lands it
// here for a fresh plan and render.
type Editor struct {
	cfg    *config.Config
	model  providers.LanguageModel
	media  *media.Service
	store  objectstore.Store
	logger *slog.Logger
}

// NewEditor constructs the edit stage handler.
func NewEditor(cfg *config.Config, model providers.LanguageModel, mediaSvc *media.Service, store objectstore.Store, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{cfg: cfg, model: model, media: mediaSvc, store: store, logger: logger}
}

// Prepare validates the inputs the render needs.
func (e *Editor) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.TranscriptJSON) == "" {
		return services.Wrap(services.ErrValidation, "edit", "prepare",
			fmt.Sprintf("job %d has no transcript", job.ID), nil)
	}
	if strings.TrimSpace(job.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "edit", "prepare",
			fmt.Sprintf("job %d has no staged video", job.ID), nil)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		return services.Wrap(services.ErrValidation, "edit", "prepare",
			fmt.Sprintf("staged video %s is missing", job.VideoPath), err)
	}
	job.InitProgress("Editing", "Generating edit plan")
	return nil
}

// Execute produces and persists the plan, renders the clip and thumbnail,
// and uploads both to object storage.
func (e *Editor) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, e.logger)

	var transcript content.TranscriptResult
	if err := json.Unmarshal([]byte(job.TranscriptJSON), &transcript); err != nil {
		return services.Wrap(services.ErrValidation, "edit", "execute", "transcript json is corrupt", err)
	}

	plan, err := e.model.GenerateEditPlan(ctx, transcript)
	if err != nil {
		return err
	}
	e.clampToSource(ctx, job, &plan)
	if overlaps := plan.Normalize(); overlaps > 0 {
		log.Warn("edit plan has overlapping source ranges", slog.Int("overlaps", overlaps))
	}
	if len(plan.Clips) == 0 {
		return services.Wrap(services.ErrExternalTool, "edit", "execute",
			fmt.Sprintf("job %d produced an empty edit plan", job.ID), nil)
	}

	encoded, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode edit plan: %w", err)
	}
	job.EditPlanJSON = string(encoded)
	job.SetProgress("Editing", "Rendering clips", 40)

	workDir := filepath.Join(filepath.Dir(job.VideoPath), "render")
	clipPath := filepath.Join(workDir, "final.mp4")
	if err := e.media.RenderClips(ctx, job.VideoPath, plan, workDir, clipPath); err != nil {
		return err
	}

	thumbPath := filepath.Join(workDir, "thumb.jpg")
	if err := e.media.Thumbnail(ctx, job.VideoPath, plan.Clips[0].StartMs, thumbPath); err != nil {
		return err
	}
	job.SetProgress("Editing", "Uploading", 80)

	keyBase := fmt.Sprintf("clips/%s-%d", textutil.SanitizeToken(job.SourceID), job.ID)
	clipKey := keyBase + "/final.mp4"
	if err := e.upload(ctx, clipPath, clipKey, "video/mp4"); err != nil {
		return err
	}
	thumbKey := keyBase + "/thumb.jpg"
	if err := e.upload(ctx, thumbPath, thumbKey, "image/jpeg"); err != nil {
		return err
	}
	job.ClipKey = clipKey
	job.ThumbnailKey = thumbKey
	job.SetProgressComplete("Edited", fmt.Sprintf("%d clips, %.1fs total",
		len(plan.Clips), float64(plan.TotalDurationMs)/1000))
	log.Info("clip rendered and uploaded",
		slog.Int("clips", len(plan.Clips)),
		slog.Int64("duration_ms", plan.TotalDurationMs),
		slog.String("clip_key", clipKey))
	return nil
}

// clampToSource trims clip ranges that run past the end of the source. A
// probe failure is logged and ignored; ffmpeg tolerates a -to past EOF.
func (e *Editor) clampToSource(ctx context.Context, job *queue.Job, plan *content.EditPlan) {
	durationMs, err := e.media.ProbeDurationMs(ctx, job.VideoPath)
	if err != nil || durationMs <= 0 {
		if err != nil {
			logging.WithContext(ctx, e.logger).Warn("source duration probe failed", logging.Error(err))
		}
		return
	}
	kept := plan.Clips[:0]
	for _, clip := range plan.Clips {
		if clip.StartMs >= durationMs {
			continue
		}
		if clip.EndMs > durationMs {
			clip.EndMs = durationMs
		}
		kept = append(kept, clip)
	}
	plan.Clips = kept
}

func (e *Editor) upload(ctx context.Context, localPath, key, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s for upload: %w", localPath, err)
	}
	defer file.Close()
	if err := e.store.Put(ctx, key, file, contentType); err != nil {
		return services.Wrap(services.ErrTransient, "edit", "upload",
			fmt.Sprintf("upload %s failed", key), err)
	}
	return nil
}

// HealthCheck verifies the render tooling and storage backend.
func (e *Editor) HealthCheck(ctx context.Context) stage.Health {
	if err := e.media.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("edit", err.Error())
	}
	return stage.Healthy("edit")
}
