package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/metagen"
	"clipforge/internal/providers/mock"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	encoded, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(encoded)
}

func scoringJob(t *testing.T) *queue.Job {
	t.Helper()
	transcript := content.TranscriptResult{
		Text:     "welcome to the lesson here is the key idea",
		Language: "en",
		Segments: []content.TranscriptSegment{
			{StartMs: 0, EndMs: 15_000, Text: "welcome to the lesson"},
			{StartMs: 15_000, EndMs: 30_000, Text: "here is the key idea"},
		},
		Confidence: 0.95,
	}
	plan := content.EditPlan{
		Clips: []content.ClipSegment{
			{OrderIndex: 1, StartMs: 0, EndMs: 15_000, Title: "Clip one"},
			{OrderIndex: 2, StartMs: 15_000, EndMs: 30_000, Title: "Clip two"},
		},
		TotalDurationMs: 30_000,
		EditingStrategy: "highlights",
	}
	return &queue.Job{
		ID:             5,
		Title:          "Source video",
		Language:       "en",
		Status:         queue.StatusScoring,
		TranscriptJSON: mustJSON(t, transcript),
		EditPlanJSON:   mustJSON(t, plan),
		ClipKey:        "clips/job-5/final.mp4",
	}
}

func newHandler() *Handler {
	cfg := config.Default()
	gen := metagen.NewGenerator(mock.NewLanguageModel(), logging.NewNop())
	return NewHandler(&cfg, gen, logging.NewNop())
}

func TestExecuteRoutesGoodJobToReview(t *testing.T) {
	handler := newHandler()
	job := scoringJob(t)

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if job.Status != queue.StatusPendingApproval {
		t.Fatalf("status = %s, want pending_approval", job.Status)
	}
	if job.QualityScore < 70 {
		t.Fatalf("quality score = %d, want >= 70", job.QualityScore)
	}
	var metas []content.Metadata
	if err := json.Unmarshal([]byte(job.MetadataJSON), &metas); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if len(metas) == 0 || metas[0].Language != "en" {
		t.Fatalf("metadata = %+v", metas)
	}
	var score Score
	if err := json.Unmarshal([]byte(job.ScoreJSON), &score); err != nil {
		t.Fatalf("score json: %v", err)
	}
	if score.Overall != job.QualityScore {
		t.Fatalf("score json %d disagrees with job %d", score.Overall, job.QualityScore)
	}
}

func TestExecuteAutoRejectsPoorJob(t *testing.T) {
	handler := newHandler()
	job := scoringJob(t)
	job.TranscriptJSON = mustJSON(t, content.TranscriptResult{})
	job.EditPlanJSON = mustJSON(t, content.EditPlan{
		Clips:           []content.ClipSegment{{OrderIndex: 1, StartMs: 0, EndMs: 5_000}},
		TotalDurationMs: 5_000,
		EditingStrategy: "fallback_single_clip",
	})

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if job.Status != queue.StatusRejected {
		t.Fatalf("status = %s, want rejected", job.Status)
	}
	if !strings.Contains(job.ReviewNote, "auto-rejected") {
		t.Fatalf("review note = %q", job.ReviewNote)
	}
}

func TestExecuteUsesStoredEvaluation(t *testing.T) {
	handler := newHandler()
	withEval := scoringJob(t)
	withEval.EvaluationJSON = mustJSON(t, content.EvaluatedVideo{
		RelevanceScore: 90, EducationalValue: 90, ShortFormSuitability: 90, PredictedQuality: 90,
		Recommendation: content.RecommendationHighly,
	})
	without := scoringJob(t)

	if err := handler.Execute(context.Background(), withEval); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), without); err != nil {
		t.Fatal(err)
	}
	if withEval.QualityScore <= without.QualityScore {
		t.Fatalf("evaluation ignored: %d vs %d", withEval.QualityScore, without.QualityScore)
	}
}

func TestPrepareRequiresEditArtifacts(t *testing.T) {
	handler := newHandler()
	job := scoringJob(t)
	job.ClipKey = ""
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
