// Package review is the human gate between machine scoring and publication.
// Reviewers see the prioritized queue, then approve (optionally with edits),
// reject, or send a job back for another edit pass.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// Edits carries reviewer overrides applied at approval time. Zero-value
// fields leave the machine metadata untouched. Edits apply to the job's
// primary-language metadata; that is what publishes.
type Edits struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (e Edits) empty() bool {
	return e.Title == "" && e.Description == "" && e.Category == "" && len(e.Tags) == 0
}

// Service exposes the review gate operations.
type Service struct {
	store  *queue.Store
	logger *slog.Logger
}

// NewService constructs a review service over the job store.
func NewService(store *queue.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the open review queue, highest priority first. Rows come
// from the denormalized pending_content snapshot, so listing never decodes
// job internals.
func (s *Service) List(ctx context.Context) ([]*queue.PendingContent, error) {
	return s.store.ListPending(ctx)
}

// Get fetches one job for review display.
func (s *Service) Get(ctx context.Context, id int64) (*queue.Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "review", "get",
			fmt.Sprintf("job %d not found", id), nil)
	}
	return job, nil
}

// Approve marks a job approved for publication, applying any reviewer edits
// to its primary metadata. Approving an already-approved, published, or
// rejected job is a no-op.
func (s *Service) Approve(ctx context.Context, id int64, edits Edits) (*queue.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case queue.StatusApproved, queue.StatusPublishing, queue.StatusPublished, queue.StatusRejected:
		return job, nil
	}
	if job.Status != queue.StatusPendingApproval {
		return nil, services.Wrap(services.ErrValidation, "review", "approve",
			fmt.Sprintf("job %d is %s, not awaiting review", id, job.Status), nil)
	}

	if !edits.empty() {
		if err := applyEdits(job, edits); err != nil {
			return nil, err
		}
	}
	if err := job.TransitionTo(queue.StatusApproved); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, job); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("job approved",
		slog.Int64("job_id", id), slog.Bool("edited", !edits.empty()))
	return job, nil
}

// Reject marks a job rejected with the reviewer's reason. Rejecting a
// terminal job is a no-op.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*queue.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case queue.StatusRejected, queue.StatusPublished:
		return job, nil
	}
	if job.Status != queue.StatusPendingApproval {
		return nil, services.Wrap(services.ErrValidation, "review", "reject",
			fmt.Sprintf("job %d is %s, not awaiting review", id, job.Status), nil)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, services.Wrap(services.ErrValidation, "review", "reject", "rejection reason required", nil)
	}

	if err := job.TransitionTo(queue.StatusRejected); err != nil {
		return nil, err
	}
	job.ReviewNote = reason
	if err := s.store.Update(ctx, job); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("job rejected",
		slog.Int64("job_id", id), slog.String("reason", reason))
	return job, nil
}

// RequestEdit sends a job back through the edit stage with a note for the
// next pass.
func (s *Service) RequestEdit(ctx context.Context, id int64, note string) (*queue.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusPendingApproval {
		return nil, services.Wrap(services.ErrValidation, "review", "request edit",
			fmt.Sprintf("job %d is %s, not awaiting review", id, job.Status), nil)
	}

	if err := job.TransitionTo(queue.StatusNeedsEdit); err != nil {
		return nil, err
	}
	job.ReviewNote = note
	if err := s.store.Update(ctx, job); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("job sent back for edit",
		slog.Int64("job_id", id), slog.String("note", note))
	return job, nil
}

// applyEdits overwrites the primary metadata instance with the reviewer's
// values.
func applyEdits(job *queue.Job, edits Edits) error {
	var metas []content.Metadata
	if job.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(job.MetadataJSON), &metas); err != nil {
			return services.Wrap(services.ErrValidation, "review", "approve", "metadata json is corrupt", err)
		}
	}
	if len(metas) == 0 {
		metas = []content.Metadata{{Language: job.Language}}
	}

	primary := 0
	for i, meta := range metas {
		if meta.Language == job.Language {
			primary = i
			break
		}
	}
	if edits.Title != "" {
		metas[primary].Title = edits.Title
	}
	if edits.Description != "" {
		metas[primary].Description = edits.Description
	}
	if edits.Category != "" {
		metas[primary].Category = edits.Category
	}
	if len(edits.Tags) > 0 {
		metas[primary].Tags = edits.Tags
		metas[primary].ClampTags()
	}

	encoded, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	job.MetadataJSON = string(encoded)
	return nil
}
