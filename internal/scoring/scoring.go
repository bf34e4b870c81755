// Package scoring computes machine quality scores for finished edits and
// routes them to the review queue or automatic rejection.
package scoring

import (
	"fmt"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/queue"
)

// componentMax is the ceiling for each quality component; four components
// sum to the 0-100 overall score.
const componentMax = 25

// Score is the full quality assessment for one job. Each component is
// scored 0-25 and Overall is their sum.
type Score struct {
	Overall          int      `json:"overall"`
	ContentRelevance int      `json:"content_relevance"`
	AudioClarity     int      `json:"audio_clarity"`
	VisualQuality    int      `json:"visual_quality"`
	EducationalValue int      `json:"educational_value"`
	Reasons          []string `json:"reasons,omitempty"`
}

// Input carries the artifacts the scorer inspects.
type Input struct {
	Transcript content.TranscriptResult
	EditPlan   content.EditPlan
	Metadata   content.Metadata
	Evaluation *content.EvaluatedVideo
}

// Evaluate produces the quality score for a job's artifacts. The result is
// deterministic for a given input. Jobs without a stored source evaluation
// get neutral credit for the evaluation-backed portions of each component.
func Evaluate(in Input) Score {
	var score Score
	if in.Evaluation == nil {
		score.Reasons = append(score.Reasons, "no source evaluation; neutral source contribution")
	}
	score.ContentRelevance = scoreContentRelevance(in.Metadata, in.Evaluation, &score)
	score.AudioClarity = scoreAudioClarity(in.Transcript, &score)
	score.VisualQuality = scoreVisualQuality(in.EditPlan, in.Evaluation, &score)
	score.EducationalValue = scoreEducationalValue(in.Metadata, in.Evaluation, &score)
	score.Overall = score.ContentRelevance + score.AudioClarity +
		score.VisualQuality + score.EducationalValue
	return score
}

// scoreContentRelevance checks that the metadata describes something findable
// (0-17) and folds in the discovery evaluation's relevance verdict (0-8).
func scoreContentRelevance(m content.Metadata, eval *content.EvaluatedVideo, score *Score) int {
	value := 0
	if strings.TrimSpace(m.Title) != "" {
		value += 6
	} else {
		score.Reasons = append(score.Reasons, "metadata title missing")
	}
	if strings.TrimSpace(m.Description) != "" {
		value += 4
	}
	if len(m.Tags) >= 3 {
		value += 4
	} else if len(m.Tags) > 0 {
		value += 2
	}
	if strings.TrimSpace(m.Category) != "" {
		value += 3
	}
	if eval != nil {
		value += eval.RelevanceScore * 8 / 100
	} else {
		value += 4
	}
	return clampComponent(value)
}

// scoreAudioClarity reads transcription confidence and segment coverage as a
// proxy for how intelligible the source audio is.
func scoreAudioClarity(t content.TranscriptResult, score *Score) int {
	if strings.TrimSpace(t.Text) == "" {
		score.Reasons = append(score.Reasons, "transcript is empty")
		return 0
	}
	value := 15
	if t.Confidence >= 0.8 {
		value += 6
	} else if t.Confidence >= 0.5 {
		value += 3
	} else {
		score.Reasons = append(score.Reasons, fmt.Sprintf("low transcription confidence %.2f", t.Confidence))
	}
	if len(t.Segments) >= 5 {
		value += 4
	} else if len(t.Segments) > 0 {
		value += 2
	} else {
		score.Reasons = append(score.Reasons, "transcript has no timestamped segments")
	}
	return clampComponent(value)
}

// scoreVisualQuality judges the edit plan's shape (0-15) and the discovery
// evaluation's predicted production quality (0-10).
func scoreVisualQuality(p content.EditPlan, eval *content.EvaluatedVideo, score *Score) int {
	value := 0
	if len(p.Clips) == 0 {
		score.Reasons = append(score.Reasons, "edit plan has no clips")
	} else {
		value += 5
		if len(p.Clips) >= 2 {
			value += 3
		}
		switch {
		case p.TotalDurationMs >= 20_000 && p.TotalDurationMs <= 180_000:
			value += 5
		case p.TotalDurationMs > 0:
			value++
			score.Reasons = append(score.Reasons, fmt.Sprintf("total duration %dms outside short-form range", p.TotalDurationMs))
		default:
			score.Reasons = append(score.Reasons, "edit plan has zero duration")
		}
		titled := 0
		for _, clip := range p.Clips {
			if strings.TrimSpace(clip.Title) != "" {
				titled++
			}
		}
		if titled == len(p.Clips) {
			value += 2
		}
	}
	if p.EditingStrategy == "fallback_single_clip" {
		value -= 8
		score.Reasons = append(score.Reasons, "edit plan is the malformed-output fallback")
	}
	if eval != nil {
		value += eval.PredictedQuality * 10 / 100
	} else {
		value += 5
	}
	return clampComponent(value)
}

// scoreEducationalValue leans on the discovery evaluation's teaching verdict
// (0-18) plus metadata signals that the clip is structured to teach (0-7).
func scoreEducationalValue(m content.Metadata, eval *content.EvaluatedVideo, score *Score) int {
	value := 0
	if eval != nil {
		value += (eval.EducationalValue + eval.ShortFormSuitability) / 2 * 18 / 100
	} else {
		value += 9
	}
	if strings.TrimSpace(m.Difficulty) != "" {
		value += 4
	}
	if strings.TrimSpace(m.Description) != "" {
		value += 3
	}
	return clampComponent(value)
}

func clampComponent(value int) int {
	if value < 0 {
		return 0
	}
	if value > componentMax {
		return componentMax
	}
	return value
}

// Route maps an overall score to the job's next status and review priority.
// Scores below the approval threshold are rejected outright; scores at or
// above the high-priority threshold jump the review queue.
func Route(score Score, quality config.Quality) (queue.Status, int) {
	if score.Overall < quality.ApprovalThreshold {
		return queue.StatusRejected, 0
	}
	if score.Overall >= quality.HighPriorityThreshold {
		return queue.StatusPendingApproval, 1
	}
	return queue.StatusPendingApproval, 0
}
