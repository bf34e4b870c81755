package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a content job.
type Status string

const (
	StatusPending         Status = "pending"
	StatusCrawling        Status = "crawling"
	StatusCrawled         Status = "crawled"
	StatusTranscribing    Status = "transcribing"
	StatusTranscribed     Status = "transcribed"
	StatusAnalyzing       Status = "analyzing"
	StatusAnalyzed        Status = "analyzed"
	StatusEditing         Status = "editing"
	StatusEdited          Status = "edited"
	StatusScoring         Status = "scoring"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusNeedsEdit       Status = "needs_edit"
	StatusRejected        Status = "rejected"
	StatusPublishing      Status = "publishing"
	StatusPublished       Status = "published"
	StatusFailed          Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusCrawling,
	StatusCrawled,
	StatusTranscribing,
	StatusTranscribed,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusEditing,
	StatusEdited,
	StatusScoring,
	StatusPendingApproval,
	StatusApproved,
	StatusNeedsEdit,
	StatusRejected,
	StatusPublishing,
	StatusPublished,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusCrawling:     {},
	StatusTranscribing: {},
	StatusAnalyzing:    {},
	StatusEditing:      {},
	StatusScoring:      {},
	StatusPublishing:   {},
}

var terminalStatuses = map[Status]struct{}{
	StatusPublished: {},
	StatusRejected:  {},
}

// Job represents a content job persisted in SQLite.
type Job struct {
	ID              int64
	SourceURL       string
	SourceID        string
	Title           string
	Language        string
	Status          Status
	VideoPath       string
	AudioPath       string
	ClipKey         string
	ThumbnailKey    string
	EvaluationJSON  string
	TranscriptJSON  string
	SegmentsJSON    string
	EditPlanJSON    string
	MetadataJSON    string
	ScoreJSON       string
	QualityScore    int
	ReviewPriority  int
	ReviewNote      string
	ContentID       string
	ErrorMessage    string
	RetryCount      int
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
	DeletedAt       *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalStatus reports whether a status admits no further transitions
// except none at all. Failed is deliberately not terminal; failed jobs can be
// retried.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage.
func (j *Job) InitProgress(stage, message string) {
	if j.ProgressStage == "" {
		j.ProgressStage = stage
	}
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (j *Job) SetProgressComplete(stage, message string) {
	j.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total          int
	Pending        int
	Processing     int
	AwaitingReview int
	Published      int
	Rejected       int
	Failed         int
}
