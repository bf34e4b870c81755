package queue

import "fmt"

// ErrInvalidTransition reports an attempt to move a job between states the
// lifecycle does not connect.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// validTransitions is the complete lifecycle. Every non-terminal status may
// additionally transition to failed; that edge is handled in CanTransition
// rather than listed per status.
var validTransitions = map[Status][]Status{
	StatusPending:         {StatusCrawling},
	StatusCrawling:        {StatusCrawled},
	StatusCrawled:         {StatusTranscribing},
	StatusTranscribing:    {StatusTranscribed},
	StatusTranscribed:     {StatusAnalyzing},
	StatusAnalyzing:       {StatusAnalyzed},
	StatusAnalyzed:        {StatusEditing},
	StatusEditing:         {StatusEdited},
	StatusEdited:          {StatusScoring},
	StatusScoring:         {StatusPendingApproval, StatusRejected},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusNeedsEdit},
	StatusNeedsEdit:       {StatusEditing},
	StatusApproved:        {StatusPublishing},
	StatusPublishing:      {StatusPublished},
	StatusFailed:          {StatusPending},
	StatusPublished:       nil,
	StatusRejected:        nil,
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to Status) bool {
	if _, known := statusSet[from]; !known {
		return false
	}
	if _, known := statusSet[to]; !known {
		return false
	}
	if to == StatusFailed {
		return !IsTerminalStatus(from) && from != StatusFailed
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo validates and applies a status change on the job.
func (j *Job) TransitionTo(to Status) error {
	if !CanTransition(j.Status, to) {
		return &ErrInvalidTransition{From: j.Status, To: to}
	}
	j.Status = to
	return nil
}

// rollback maps an in-flight status back to the stable status its stage
// started from. Used when reclaiming jobs whose worker died mid-stage.
var rollbackTransitions = map[Status]Status{
	StatusCrawling:     StatusPending,
	StatusTranscribing: StatusCrawled,
	StatusAnalyzing:    StatusTranscribed,
	StatusEditing:      StatusAnalyzed,
	StatusScoring:      StatusEdited,
	StatusPublishing:   StatusApproved,
}
