package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/providers/mock"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func stagedJob(t *testing.T) *queue.Job {
	t.Helper()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &queue.Job{ID: 1, Status: queue.StatusTranscribing, VideoPath: videoPath}
}

func noopMedia() *media.Service {
	svc := media.NewService(config.Media{})
	svc.WithRunner(func(context.Context, string, ...string) ([]byte, error) { return nil, nil })
	return svc
}

func TestExecuteStoresTranscriptAndAudioPath(t *testing.T) {
	handler := NewHandler(noopMedia(), mock.NewTranscriber(), logging.NewNop())
	job := stagedJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if job.AudioPath == "" {
		t.Fatal("audio path not recorded")
	}
	var transcript content.TranscriptResult
	if err := json.Unmarshal([]byte(job.TranscriptJSON), &transcript); err != nil {
		t.Fatalf("transcript json: %v", err)
	}
	if transcript.Text == "" || len(transcript.Segments) == 0 {
		t.Fatalf("transcript incomplete: %+v", transcript)
	}
	if job.Language == "" {
		t.Fatal("language not backfilled from transcript")
	}
}

func TestPrepareRejectsMissingVideo(t *testing.T) {
	handler := NewHandler(noopMedia(), mock.NewTranscriber(), logging.NewNop())

	err := handler.Prepare(context.Background(), &queue.Job{ID: 2})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = handler.Prepare(context.Background(), &queue.Job{ID: 3, VideoPath: "/nonexistent/video.mp4"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}

type emptyTranscriber struct{}

func (emptyTranscriber) Name() string { return "empty" }

func (emptyTranscriber) Transcribe(context.Context, string, string) (content.TranscriptResult, error) {
	return content.TranscriptResult{}, nil
}

func (emptyTranscriber) HealthCheck(context.Context) error { return nil }

func TestExecuteRejectsEmptyTranscript(t *testing.T) {
	handler := NewHandler(noopMedia(), emptyTranscriber{}, logging.NewNop())
	job := stagedJob(t)

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
