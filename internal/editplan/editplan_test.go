package editplan

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
	"clipforge/internal/objectstore"
	"clipforge/internal/providers/mock"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func transcriptJSON(t *testing.T) string {
	t.Helper()
	transcript := content.TranscriptResult{
		Text:     "welcome to the lesson this is the core idea",
		Language: "en",
		Segments: []content.TranscriptSegment{
			{StartMs: 0, EndMs: 12_000, Text: "welcome to the lesson"},
			{StartMs: 12_000, EndMs: 30_000, Text: "this is the core idea"},
		},
		Confidence: 0.95,
	}
	encoded, err := json.Marshal(transcript)
	if err != nil {
		t.Fatal(err)
	}
	return string(encoded)
}

// fakeRenderMedia creates whatever output file each command names last, so
// the render and upload paths behave as if ffmpeg ran.
func fakeRenderMedia(t *testing.T) *media.Service {
	t.Helper()
	svc := media.NewService(config.Media{})
	svc.WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) == 0 {
			return nil, nil
		}
		out := args[len(args)-1]
		if filepath.Ext(out) == ".mp4" || filepath.Ext(out) == ".jpg" {
			if err := os.WriteFile(out, []byte("rendered"), 0o644); err != nil {
				return nil, err
			}
		}
		return []byte("31.5\n"), nil
	})
	return svc
}

func stagedJob(t *testing.T) *queue.Job {
	t.Helper()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(videoPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &queue.Job{
		ID:             4,
		Status:         queue.StatusEditing,
		VideoPath:      videoPath,
		TranscriptJSON: transcriptJSON(t),
	}
}

func TestAnalyzerStoresSegments(t *testing.T) {
	analyzer := NewAnalyzer(mock.NewLanguageModel(), logging.NewNop())
	job := &queue.Job{ID: 3, Status: queue.StatusAnalyzing, TranscriptJSON: transcriptJSON(t)}

	if err := analyzer.Prepare(context.Background(), job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := analyzer.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var segments []content.Segment
	if err := json.Unmarshal([]byte(job.SegmentsJSON), &segments); err != nil {
		t.Fatalf("segments json: %v", err)
	}
	if len(segments) == 0 {
		t.Fatal("no segments stored")
	}
}

func TestAnalyzerPrepareRequiresTranscript(t *testing.T) {
	analyzer := NewAnalyzer(mock.NewLanguageModel(), logging.NewNop())
	err := analyzer.Prepare(context.Background(), &queue.Job{ID: 9})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEditorRendersAndUploads(t *testing.T) {
	store, err := objectstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	editor := NewEditor(&cfg, mock.NewLanguageModel(), fakeRenderMedia(t), store, logging.NewNop())
	job := stagedJob(t)

	if err := editor.Prepare(context.Background(), job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := editor.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if job.ClipKey == "" || job.ThumbnailKey == "" {
		t.Fatalf("storage keys not set: %+v", job)
	}
	exists, err := store.Exists(context.Background(), job.ClipKey)
	if err != nil || !exists {
		t.Fatalf("clip not uploaded: %v %v", exists, err)
	}
	exists, err = store.Exists(context.Background(), job.ThumbnailKey)
	if err != nil || !exists {
		t.Fatalf("thumbnail not uploaded: %v %v", exists, err)
	}

	var plan content.EditPlan
	if err := json.Unmarshal([]byte(job.EditPlanJSON), &plan); err != nil {
		t.Fatalf("edit plan json: %v", err)
	}
	if len(plan.Clips) == 0 || plan.TotalDurationMs <= 0 {
		t.Fatalf("plan incomplete: %+v", plan)
	}
}

func TestEditorClampsClipsToSourceDuration(t *testing.T) {
	cfg := config.Default()
	editor := NewEditor(&cfg, nil, fakeRenderMedia(t), nil, logging.NewNop())
	job := stagedJob(t)

	// Probe in fakeRenderMedia reports 31.5s.
	plan := content.EditPlan{Clips: []content.ClipSegment{
		{OrderIndex: 1, StartMs: 0, EndMs: 20_000},
		{OrderIndex: 2, StartMs: 25_000, EndMs: 60_000},
		{OrderIndex: 3, StartMs: 40_000, EndMs: 50_000},
	}}
	editor.clampToSource(context.Background(), job, &plan)

	if len(plan.Clips) != 2 {
		t.Fatalf("clips = %d, want 2 (past-EOF clip dropped)", len(plan.Clips))
	}
	if plan.Clips[1].EndMs != 31_500 {
		t.Fatalf("second clip end = %d, want clamped to 31500", plan.Clips[1].EndMs)
	}
}

func TestEditorPrepareRequiresInputs(t *testing.T) {
	cfg := config.Default()
	editor := NewEditor(&cfg, nil, nil, nil, logging.NewNop())

	err := editor.Prepare(context.Background(), &queue.Job{ID: 1, VideoPath: "/x.mp4"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing transcript should fail validation, got %v", err)
	}
	err = editor.Prepare(context.Background(), &queue.Job{ID: 1, TranscriptJSON: "{}"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing video should fail validation, got %v", err)
	}
}
