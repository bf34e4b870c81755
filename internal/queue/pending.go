package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PendingStatus tracks a review-queue row through its lifecycle.
type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusApproved  PendingStatus = "approved"
	PendingStatusRejected  PendingStatus = "rejected"
	PendingStatusPublished PendingStatus = "published"
)

// PendingContent is the denormalized review-queue snapshot of a job. The row
// carries everything the reviewer list shows, so review reads never join back
// into job internals.
type PendingContent struct {
	JobID          int64
	Title          string
	Category       string
	Tags           []string
	ClipKey        string
	ThumbnailKey   string
	QualityScore   int
	ReviewPriority int
	Status         PendingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// syncPending keeps the pending_content projection in step with its job.
// A job entering review gets a fresh snapshot, reviewer decisions move the
// row's status, and a job sent back for edits leaves the queue until it is
// rescored. Auto-rejected jobs never had a row, so for them the rejected
// update touches nothing.
func (s *Store) syncPending(ctx context.Context, job *Job) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	switch job.Status {
	case StatusPendingApproval, StatusApproved, StatusPublishing:
		status := PendingStatusPending
		if job.Status != StatusPendingApproval {
			status = PendingStatusApproved
		}
		title, category, tagsJSON := reviewSnapshot(job)
		_, err := s.execWithRetry(ctx,
			`INSERT INTO pending_content (
                job_id, title, category, tags_json, clip_key, thumbnail_key,
                quality_score, review_priority, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(job_id) DO UPDATE SET
                title = excluded.title,
                category = excluded.category,
                tags_json = excluded.tags_json,
                clip_key = excluded.clip_key,
                thumbnail_key = excluded.thumbnail_key,
                quality_score = excluded.quality_score,
                review_priority = excluded.review_priority,
                status = excluded.status,
                updated_at = excluded.updated_at`,
			job.ID,
			nullableString(title),
			nullableString(category),
			nullableString(tagsJSON),
			nullableString(job.ClipKey),
			nullableString(job.ThumbnailKey),
			job.QualityScore,
			job.ReviewPriority,
			status,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("sync pending content: %w", err)
		}
	case StatusRejected, StatusPublished:
		status := PendingStatusRejected
		if job.Status == StatusPublished {
			status = PendingStatusPublished
		}
		_, err := s.execWithRetry(ctx,
			`UPDATE pending_content SET status = ?, updated_at = ? WHERE job_id = ?`,
			status, now, job.ID,
		)
		if err != nil {
			return fmt.Errorf("sync pending content: %w", err)
		}
	case StatusNeedsEdit, StatusEditing:
		_, err := s.execWithRetry(ctx,
			`DELETE FROM pending_content WHERE job_id = ?`, job.ID,
		)
		if err != nil {
			return fmt.Errorf("sync pending content: %w", err)
		}
	}
	return nil
}

// reviewSnapshot picks the fields a reviewer sees from the job's primary
// metadata, falling back to the source title when no metadata decodes.
func reviewSnapshot(job *Job) (title, category, tagsJSON string) {
	title = job.Title
	if job.MetadataJSON == "" {
		return title, "", ""
	}
	var metas []struct {
		Title    string   `json:"title"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Language string   `json:"language"`
	}
	if err := json.Unmarshal([]byte(job.MetadataJSON), &metas); err != nil || len(metas) == 0 {
		return title, "", ""
	}
	pick := metas[0]
	for _, meta := range metas {
		if meta.Language == job.Language {
			pick = meta
			break
		}
	}
	if pick.Title != "" {
		title = pick.Title
	}
	if len(pick.Tags) > 0 {
		if encoded, err := json.Marshal(pick.Tags); err == nil {
			tagsJSON = string(encoded)
		}
	}
	return title, pick.Category, tagsJSON
}

const pendingColumns = `job_id, title, category, tags_json, clip_key, thumbnail_key,
    quality_score, review_priority, status, created_at, updated_at`

// ListPending returns the open review queue, highest priority first, then
// score, then age.
func (s *Store) ListPending(ctx context.Context) ([]*PendingContent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_content
        WHERE status = ?
        ORDER BY review_priority DESC, quality_score DESC, created_at ASC`,
		PendingStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending content: %w", err)
	}
	defer rows.Close()

	var pending []*PendingContent
	for rows.Next() {
		pc, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pc)
	}
	return pending, rows.Err()
}

// PendingByJob fetches the projection row for one job, nil when absent.
func (s *Store) PendingByJob(ctx context.Context, jobID int64) (*PendingContent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_content WHERE job_id = ?`, jobID)
	pc, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending content: %w", err)
	}
	return pc, nil
}

func scanPending(scanner interface{ Scan(dest ...any) error }) (*PendingContent, error) {
	var (
		pc           PendingContent
		title        sql.NullString
		category     sql.NullString
		tagsJSON     sql.NullString
		clipKey      sql.NullString
		thumbnailKey sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&pc.JobID, &title, &category, &tagsJSON, &clipKey, &thumbnailKey,
		&pc.QualityScore, &pc.ReviewPriority, &pc.Status, &createdRaw, &updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan pending content: %w", err)
	}
	pc.Title = title.String
	pc.Category = category.String
	pc.ClipKey = clipKey.String
	pc.ThumbnailKey = thumbnailKey.String
	if tagsJSON.String != "" {
		// Corrupt tags degrade to an empty list rather than failing the scan.
		_ = json.Unmarshal([]byte(tagsJSON.String), &pc.Tags)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		pc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		pc.UpdatedAt = updated
	}
	return &pc, nil
}
