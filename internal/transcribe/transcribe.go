// Package transcribe turns a downloaded source video into a timestamped
// transcript.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/providers"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
)

// Handler extracts audio from the staged video and runs speech-to-text.
type Handler struct {
	media       *media.Service
	transcriber providers.Transcriber
	logger      *slog.Logger
}

// NewHandler constructs the transcription stage handler.
func NewHandler(mediaSvc *media.Service, transcriber providers.Transcriber, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{media: mediaSvc, transcriber: transcriber, logger: logger}
}

// Prepare validates that the crawl stage left a video behind.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "prepare",
			fmt.Sprintf("job %d has no staged video", job.ID), nil)
	}
	if _, err := os.Stat(job.VideoPath); err != nil {
		return services.Wrap(services.ErrValidation, "transcribe", "prepare",
			fmt.Sprintf("staged video %s is missing", job.VideoPath), err)
	}
	job.InitProgress("Transcribing", "Extracting audio")
	return nil
}

// Execute extracts a transcription-ready audio track and stores the
// transcript JSON on the job.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	log := logging.WithContext(ctx, h.logger)

	audioPath := filepath.Join(filepath.Dir(job.VideoPath), "audio.wav")
	if err := h.media.ExtractAudio(ctx, job.VideoPath, audioPath); err != nil {
		return err
	}
	job.AudioPath = audioPath
	job.SetProgress("Transcribing", "Running speech to text", 40)

	transcript, err := h.transcriber.Transcribe(ctx, audioPath, job.Language)
	if err != nil {
		return err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return services.Wrap(services.ErrExternalTool, "transcribe", "execute",
			fmt.Sprintf("job %d produced an empty transcript", job.ID), nil)
	}

	encoded, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	job.TranscriptJSON = string(encoded)
	if job.Language == "" {
		job.Language = transcript.Language
	}
	job.SetProgressComplete("Transcribed", "Transcript ready")
	log.Info("transcription complete",
		slog.Int("segments", len(transcript.Segments)),
		slog.String("language", transcript.Language))
	return nil
}

// HealthCheck reports whether both the audio extractor and the transcriber
// are usable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.media.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcribe", err.Error())
	}
	if err := h.transcriber.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcribe", err.Error())
	}
	return stage.Healthy("transcribe")
}
