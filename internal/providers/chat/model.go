// Package chat implements the language-model capability on top of any
// chat-completion backend. The backend only has to complete prompts; all
// prompt construction, response parsing, and malformed-output fallbacks live
// here so every provider behaves identically.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/content"
	"clipforge/internal/llm"
	"clipforge/internal/logging"
)

// DefaultEvaluationBatch bounds prompt size for metadata-only triage.
const DefaultEvaluationBatch = 10

// Completer is the transport contract a chat backend must satisfy.
type Completer interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Model adapts a Completer to the pipeline's language-model capability.
type Model struct {
	completer Completer
	logger    *slog.Logger
	batchSize int
}

// Option customizes the model.
type Option func(*Model)

// WithBatchSize overrides the evaluation sub-batch size.
func WithBatchSize(size int) Option {
	return func(m *Model) {
		if size > 0 {
			m.batchSize = size
		}
	}
}

// WithLogger attaches a logger for fallback warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel wraps the completer.
func NewModel(completer Completer, opts ...Option) *Model {
	model := &Model{
		completer: completer,
		logger:    logging.NewNop(),
		batchSize: DefaultEvaluationBatch,
	}
	for _, opt := range opts {
		opt(model)
	}
	return model
}

// Name reports the underlying provider name.
func (m *Model) Name() string { return m.completer.Name() }

// Analyze answers a free-form question about the supplied content.
func (m *Model) Analyze(ctx context.Context, prompt string) (string, error) {
	return m.completer.Complete(ctx, analyzeSystemPrompt, prompt)
}

// ExtractKeySegments identifies key moments in a transcript. A malformed
// response yields an empty list, never an error.
func (m *Model) ExtractKeySegments(ctx context.Context, transcript content.TranscriptResult) ([]content.Segment, error) {
	raw, err := m.completer.CompleteJSON(ctx, keySegmentsSystemPrompt, transcriptPrompt(transcript))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Segments []content.Segment `json:"segments"`
	}
	if decodeErr := llm.DecodeJSON(raw, &parsed); decodeErr != nil {
		m.warnFallback("extract key segments", decodeErr)
		return []content.Segment{}, nil
	}
	return parsed.Segments, nil
}

// GenerateEditPlan turns a transcript into an ordered clip selection. When the
// model response cannot be parsed, a single-clip fallback plan covering the
// opening of the source is returned so the job degrades instead of failing.
func (m *Model) GenerateEditPlan(ctx context.Context, transcript content.TranscriptResult) (content.EditPlan, error) {
	raw, err := m.completer.CompleteJSON(ctx, editPlanSystemPrompt, transcriptPrompt(transcript))
	if err != nil {
		return content.EditPlan{}, err
	}
	var plan content.EditPlan
	if decodeErr := llm.DecodeJSON(raw, &plan); decodeErr != nil || len(plan.Clips) == 0 {
		if decodeErr != nil {
			m.warnFallback("generate edit plan", decodeErr)
		}
		return fallbackEditPlan(transcript), nil
	}
	plan.Normalize()
	return plan, nil
}

// GenerateMetadata produces localized descriptive metadata. A malformed
// response yields placeholder metadata derived from the source title.
func (m *Model) GenerateMetadata(ctx context.Context, sourceTitle, transcriptText, language string) (content.Metadata, error) {
	prompt := fmt.Sprintf("Language: %s\nSource title: %s\n\nTranscript:\n%s", language, sourceTitle, clampText(transcriptText, 6000))
	raw, err := m.completer.CompleteJSON(ctx, metadataSystemPrompt, prompt)
	if err != nil {
		return content.Metadata{}, err
	}
	var meta content.Metadata
	if decodeErr := llm.DecodeJSON(raw, &meta); decodeErr != nil || strings.TrimSpace(meta.Title) == "" {
		if decodeErr != nil {
			m.warnFallback("generate metadata", decodeErr)
		}
		meta = content.Metadata{
			Title:      clampText(sourceTitle, 80),
			Category:   "general",
			Difficulty: "beginner",
		}
	}
	meta.Language = language
	meta.ClampTags()
	return meta, nil
}

// GenerateSearchQueries turns aggregated discovery signals into ranked search
// queries. A malformed response yields an empty list, never an error.
func (m *Model) GenerateSearchQueries(ctx context.Context, sc content.SearchContext) ([]content.SearchQuery, error) {
	encoded, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("encode search context: %w", err)
	}
	raw, err := m.completer.CompleteJSON(ctx, searchQueriesSystemPrompt, string(encoded))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Queries []content.SearchQuery `json:"queries"`
	}
	if decodeErr := llm.DecodeJSON(raw, &parsed); decodeErr != nil {
		m.warnFallback("generate search queries", decodeErr)
		return []content.SearchQuery{}, nil
	}
	out := parsed.Queries[:0]
	for _, q := range parsed.Queries {
		if strings.TrimSpace(q.Query) == "" {
			continue
		}
		if q.Priority < 1 {
			q.Priority = 1
		}
		if q.Priority > 10 {
			q.Priority = 10
		}
		out = append(out, q)
	}
	return out, nil
}

// EvaluateVideos triages candidates in fixed-size sub-batches. A failure in
// one sub-batch is logged and replaced with neutral placeholder evaluations;
// the remaining sub-batches still run, so partial quality loss never aborts
// the whole triage.
func (m *Model) EvaluateVideos(ctx context.Context, candidates []content.VideoCandidate) ([]content.EvaluatedVideo, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	results := make([]content.EvaluatedVideo, 0, len(candidates))
	for start := 0; start < len(candidates); start += m.batchSize {
		end := min(start+m.batchSize, len(candidates))
		batch := candidates[start:end]
		evaluations, err := m.evaluateBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			m.logger.Warn("video evaluation sub-batch failed; substituting neutral placeholders",
				logging.Error(err),
				logging.Int("batch_start", start),
				logging.Int("batch_size", len(batch)),
			)
			evaluations = placeholderEvaluations(batch)
		}
		results = append(results, evaluations...)
	}
	return results, nil
}

func (m *Model) evaluateBatch(ctx context.Context, batch []content.VideoCandidate) ([]content.EvaluatedVideo, error) {
	payload := struct {
		Candidates []content.VideoCandidate `json:"candidates"`
	}{Candidates: batch}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}
	raw, err := m.completer.CompleteJSON(ctx, evaluateSystemPrompt, string(encoded))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Evaluations []struct {
			Index                int    `json:"index"`
			RelevanceScore       int    `json:"relevance_score"`
			EducationalValue     int    `json:"educational_value"`
			ShortFormSuitability int    `json:"short_form_suitability"`
			PredictedQuality     int    `json:"predicted_quality"`
			Recommendation       string `json:"recommendation"`
			Reasoning            string `json:"reasoning"`
		} `json:"evaluations"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse evaluations: %w", err)
	}

	out := make([]content.EvaluatedVideo, 0, len(parsed.Evaluations))
	for _, eval := range parsed.Evaluations {
		// Out-of-range references are dropped; the rest of the batch is kept.
		if eval.Index < 0 || eval.Index >= len(batch) {
			m.logger.Warn("evaluation references unknown candidate; dropping entry",
				logging.Int("index", eval.Index),
				logging.Int("batch_size", len(batch)),
			)
			continue
		}
		out = append(out, content.EvaluatedVideo{
			Candidate:            batch[eval.Index],
			RelevanceScore:       clampScore(eval.RelevanceScore),
			EducationalValue:     clampScore(eval.EducationalValue),
			ShortFormSuitability: clampScore(eval.ShortFormSuitability),
			PredictedQuality:     clampScore(eval.PredictedQuality),
			Recommendation:       content.ParseRecommendation(eval.Recommendation),
			Reasoning:            strings.TrimSpace(eval.Reasoning),
		})
	}
	return out, nil
}

func (m *Model) warnFallback(operation string, err error) {
	m.logger.Warn("malformed model output; substituting safe default",
		logging.String("operation", operation),
		logging.String(logging.FieldProvider, m.completer.Name()),
		logging.Error(err),
	)
}

func placeholderEvaluations(batch []content.VideoCandidate) []content.EvaluatedVideo {
	out := make([]content.EvaluatedVideo, len(batch))
	for i, candidate := range batch {
		out[i] = content.EvaluatedVideo{
			Candidate:            candidate,
			RelevanceScore:       50,
			EducationalValue:     50,
			ShortFormSuitability: 50,
			PredictedQuality:     50,
			Recommendation:       content.RecommendationMaybe,
			Reasoning:            "evaluation unavailable; neutral placeholder",
		}
	}
	return out
}

func fallbackEditPlan(transcript content.TranscriptResult) content.EditPlan {
	var endMs int64 = 60_000
	if n := len(transcript.Segments); n > 0 {
		if last := transcript.Segments[n-1].EndMs; last < endMs {
			endMs = last
		}
	}
	plan := content.EditPlan{
		Clips: []content.ClipSegment{{
			OrderIndex: 1,
			StartMs:    0,
			EndMs:      endMs,
			Title:      "Highlight",
		}},
		EditingStrategy: "fallback_single_clip",
		TransitionStyle: "cut",
	}
	plan.Normalize()
	return plan
}

func transcriptPrompt(transcript content.TranscriptResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\nSegments:\n", transcript.Language)
	for _, seg := range transcript.Segments {
		fmt.Fprintf(&b, "[%d-%d] %s\n", seg.StartMs, seg.EndMs, seg.Text)
	}
	if len(transcript.Segments) == 0 {
		b.WriteString(clampText(transcript.Text, 8000))
	}
	return b.String()
}

func clampText(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
