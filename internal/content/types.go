// Package content defines the payload types exchanged between pipeline stages
// and the provider capabilities.
package content

import (
	"sort"
	"strings"
)

// VideoCandidate is a raw external search result. Immutable; created by
// search, consumed by evaluation.
type VideoCandidate struct {
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	ViewCount   int64  `json:"view_count"`
}

// Recommendation is the advisory verdict attached to an evaluated candidate.
type Recommendation string

const (
	RecommendationHighly      Recommendation = "HIGHLY_RECOMMENDED"
	RecommendationRecommended Recommendation = "RECOMMENDED"
	RecommendationMaybe       Recommendation = "MAYBE"
	RecommendationSkip        Recommendation = "SKIP"
)

// ParseRecommendation normalizes a model-provided recommendation string,
// falling back to MAYBE for anything unrecognized.
func ParseRecommendation(value string) Recommendation {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(value))) {
	case RecommendationHighly:
		return RecommendationHighly
	case RecommendationRecommended:
		return RecommendationRecommended
	case RecommendationSkip:
		return RecommendationSkip
	default:
		return RecommendationMaybe
	}
}

// EvaluatedVideo is a candidate with metadata-only quality triage attached.
// All scores are 0-100.
type EvaluatedVideo struct {
	Candidate            VideoCandidate `json:"candidate"`
	RelevanceScore       int            `json:"relevance_score"`
	EducationalValue     int            `json:"educational_value"`
	ShortFormSuitability int            `json:"short_form_suitability"`
	PredictedQuality     int            `json:"predicted_quality"`
	Recommendation       Recommendation `json:"recommendation"`
	Reasoning            string         `json:"reasoning"`
}

// SearchContext aggregates trend and taxonomy signals for query generation.
type SearchContext struct {
	Categories                 []string `json:"categories"`
	PopularKeywords            []string `json:"popular_keywords"`
	UnderrepresentedCategories []string `json:"underrepresented_categories"`
	SeasonalHint               string   `json:"seasonal_hint"`
	RecentlyPublishedTitles    []string `json:"recently_published_titles"`
	TargetLanguages            []string `json:"target_languages"`
	QueriesPerLanguage         int      `json:"queries_per_language"`
}

// SearchQuery is one generated, language-tagged search query.
type SearchQuery struct {
	Query               string `json:"query"`
	TargetCategory      string `json:"target_category"`
	ExpectedContentType string `json:"expected_content_type"`
	Priority            int    `json:"priority"` // 1-10
	Language            string `json:"language"`
}

// TranscriptSegment is one timestamped span of transcript text.
type TranscriptSegment struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// TranscriptResult is the full transcription of one source video.
// Immutable once produced; 1:1 with a content job.
type TranscriptResult struct {
	Text       string              `json:"text"`
	Segments   []TranscriptSegment `json:"segments"`
	Language   string              `json:"language"`
	Confidence float64             `json:"confidence"`
}

// Segment is a key moment extracted from a transcript.
type Segment struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Reason  string `json:"reason"`
}

// ClipSegment is one ordered clip selection inside an edit plan.
type ClipSegment struct {
	OrderIndex  int      `json:"order_index"`
	StartMs     int64    `json:"start_ms"`
	EndMs       int64    `json:"end_ms"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// EditPlan is the ordered clip selection plus editing strategy for one job.
// Clips are sorted by OrderIndex. The model does not guarantee the selected
// source ranges are non-overlapping or chronological; downstream consumers
// must tolerate both.
type EditPlan struct {
	Clips           []ClipSegment `json:"clips"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	EditingStrategy string        `json:"editing_strategy"`
	TransitionStyle string        `json:"transition_style"`
}

// Normalize sorts clips by order index, recomputes the total duration, and
// reports the source ranges that overlap a previous clip. Overlaps are
// returned for logging, never treated as fatal.
func (p *EditPlan) Normalize() (overlaps int) {
	sort.SliceStable(p.Clips, func(i, j int) bool {
		return p.Clips[i].OrderIndex < p.Clips[j].OrderIndex
	})
	var total int64
	type span struct{ start, end int64 }
	var seen []span
	for _, clip := range p.Clips {
		if clip.EndMs > clip.StartMs {
			total += clip.EndMs - clip.StartMs
		}
		for _, s := range seen {
			if clip.StartMs < s.end && clip.EndMs > s.start {
				overlaps++
				break
			}
		}
		seen = append(seen, span{clip.StartMs, clip.EndMs})
	}
	p.TotalDurationMs = total
	return overlaps
}

// MaxTags is the ceiling on generated tags per metadata instance.
const MaxTags = 10

// Metadata is the machine-generated, per-language descriptive metadata.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Difficulty  string   `json:"difficulty"`
	Language    string   `json:"language"`
}

// ClampTags truncates the tag list to MaxTags entries and drops blanks.
func (m *Metadata) ClampTags() {
	cleaned := m.Tags[:0]
	for _, tag := range m.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
		if len(cleaned) == MaxTags {
			break
		}
	}
	m.Tags = cleaned
}
