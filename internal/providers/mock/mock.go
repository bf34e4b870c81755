// Package mock provides deterministic offline provider implementations for
// development and end-to-end tests. No network, no external binaries.
package mock

import (
	"context"
	"fmt"
	"strings"

	"clipforge/internal/content"
)

// LanguageModel returns canned, deterministic outputs shaped like real model
// responses.
type LanguageModel struct{}

// NewLanguageModel constructs the mock model.
func NewLanguageModel() *LanguageModel { return &LanguageModel{} }

// Name identifies the provider.
func (m *LanguageModel) Name() string { return "mock" }

// Analyze echoes a canned analysis.
func (m *LanguageModel) Analyze(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("mock analysis of %d characters of input", len(prompt)), nil
}

// ExtractKeySegments returns one segment per transcript segment, capped at 3.
func (m *LanguageModel) ExtractKeySegments(_ context.Context, transcript content.TranscriptResult) ([]content.Segment, error) {
	segments := make([]content.Segment, 0, 3)
	for _, seg := range transcript.Segments {
		if len(segments) == 3 {
			break
		}
		segments = append(segments, content.Segment{
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
			Reason:  "mock key moment",
		})
	}
	return segments, nil
}

// GenerateEditPlan selects up to two clips from the transcript.
func (m *LanguageModel) GenerateEditPlan(_ context.Context, transcript content.TranscriptResult) (content.EditPlan, error) {
	plan := content.EditPlan{
		EditingStrategy: "mock_highlights",
		TransitionStyle: "cut",
	}
	for i, seg := range transcript.Segments {
		if i == 2 {
			break
		}
		plan.Clips = append(plan.Clips, content.ClipSegment{
			OrderIndex: i + 1,
			StartMs:    seg.StartMs,
			EndMs:      seg.EndMs,
			Title:      fmt.Sprintf("Mock clip %d", i+1),
		})
	}
	if len(plan.Clips) == 0 {
		plan.Clips = []content.ClipSegment{{OrderIndex: 1, StartMs: 0, EndMs: 30_000, Title: "Mock clip 1"}}
	}
	plan.Normalize()
	return plan, nil
}

// GenerateMetadata derives deterministic metadata from the source title.
func (m *LanguageModel) GenerateMetadata(_ context.Context, sourceTitle, _, language string) (content.Metadata, error) {
	title := strings.TrimSpace(sourceTitle)
	if title == "" {
		title = "Untitled"
	}
	return content.Metadata{
		Title:       title,
		Description: "Mock description for " + title,
		Tags:        []string{"mock", "sample"},
		Category:    "general",
		Difficulty:  "beginner",
		Language:    language,
	}, nil
}

// GenerateSearchQueries emits one query per language per category request.
func (m *LanguageModel) GenerateSearchQueries(_ context.Context, sc content.SearchContext) ([]content.SearchQuery, error) {
	languages := sc.TargetLanguages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	perLanguage := sc.QueriesPerLanguage
	if perLanguage < 1 {
		perLanguage = 1
	}
	categories := sc.Categories
	if len(categories) == 0 {
		categories = []string{"general"}
	}
	var queries []content.SearchQuery
	for _, lang := range languages {
		for i := 0; i < perLanguage; i++ {
			category := categories[i%len(categories)]
			queries = append(queries, content.SearchQuery{
				Query:               fmt.Sprintf("%s tutorial %d", category, i+1),
				TargetCategory:      category,
				ExpectedContentType: "tutorial",
				Priority:            5,
				Language:            lang,
			})
		}
	}
	return queries, nil
}

// EvaluateVideos scores every candidate identically as RECOMMENDED.
func (m *LanguageModel) EvaluateVideos(_ context.Context, candidates []content.VideoCandidate) ([]content.EvaluatedVideo, error) {
	out := make([]content.EvaluatedVideo, len(candidates))
	for i, candidate := range candidates {
		out[i] = content.EvaluatedVideo{
			Candidate:            candidate,
			RelevanceScore:       75,
			EducationalValue:     75,
			ShortFormSuitability: 75,
			PredictedQuality:     75,
			Recommendation:       content.RecommendationRecommended,
			Reasoning:            "mock evaluation",
		}
	}
	return out, nil
}

// Transcriber returns a fixed transcript regardless of input.
type Transcriber struct{}

// NewTranscriber constructs the mock transcriber.
func NewTranscriber() *Transcriber { return &Transcriber{} }

// Name identifies the provider.
func (t *Transcriber) Name() string { return "mock" }

// HealthCheck always succeeds.
func (t *Transcriber) HealthCheck(context.Context) error { return nil }

// Transcribe returns a deterministic two-segment transcript.
func (t *Transcriber) Transcribe(_ context.Context, _, language string) (content.TranscriptResult, error) {
	if language == "" {
		language = "en"
	}
	segments := []content.TranscriptSegment{
		{StartMs: 0, EndMs: 15_000, Text: "Welcome to this mock lesson on practical skills."},
		{StartMs: 15_000, EndMs: 30_000, Text: "Here is the key takeaway you should remember."},
	}
	var parts []string
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return content.TranscriptResult{
		Text:       strings.Join(parts, " "),
		Segments:   segments,
		Language:   language,
		Confidence: 0.99,
	}, nil
}
