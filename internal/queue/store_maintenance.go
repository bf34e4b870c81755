package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE content_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckProcessing rolls in-flight jobs back to the start of their
// current stage. Run at daemon startup before workers attach.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	return s.rollbackProcessing(ctx, "Reset from stuck processing", "")
}

// ReclaimStaleProcessing rolls in-flight jobs back to the start of their
// current stage when their heartbeat expired before the cutoff.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.rollbackProcessing(ctx, "Reclaimed from stale processing",
		cutoff.UTC().Format(time.RFC3339Nano))
}

func (s *Store) rollbackProcessing(ctx context.Context, stageNote, heartbeatCutoff string) (int64, error) {
	caseSQL := "CASE status"
	args := make([]any, 0, len(rollbackTransitions)*3+2)
	for from, to := range rollbackTransitions {
		caseSQL += " WHEN ? THEN ?"
		args = append(args, from, to)
	}
	caseSQL += " ELSE status END"

	query := `UPDATE content_jobs
        SET status = ` + caseSQL + `,
            progress_stage = '` + stageNote + `',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE deleted_at IS NULL AND status IN (`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	first := true
	for from := range rollbackTransitions {
		if !first {
			query += ","
		}
		query += "?"
		args = append(args, from)
		first = false
	}
	query += ")"
	if heartbeatCutoff != "" {
		query += " AND last_heartbeat IS NOT NULL AND last_heartbeat < ?"
		args = append(args, heartbeatCutoff)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("rollback processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending for reprocessing. With no
// ids, all failed jobs are retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE content_jobs
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL,
                retry_count = retry_count + 1, updated_at = ?
            WHERE status = ? AND deleted_at IS NULL`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE content_jobs
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL,
            retry_count = retry_count + 1, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `' AND deleted_at IS NULL`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear soft-deletes every live job.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.clearStatuses(ctx)
}

// ClearCompleted soft-deletes jobs that reached a terminal state.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.clearStatuses(ctx, StatusPublished, StatusRejected)
}

// ClearFailed soft-deletes failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.clearStatuses(ctx, StatusFailed)
}

func (s *Store) clearStatuses(ctx context.Context, statuses ...Status) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE content_jobs SET deleted_at = ?, updated_at = ? WHERE deleted_at IS NULL`
	args := []any{now, now}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	// Review rows for deleted jobs are history no reviewer will act on.
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM pending_content
        WHERE job_id IN (SELECT id FROM content_jobs WHERE deleted_at IS NOT NULL)`,
	); err != nil {
		return 0, fmt.Errorf("prune pending content: %w", err)
	}
	return res.RowsAffected()
}

// FailInFlight marks all in-flight jobs as failed with the supplied reason.
// Used during daemon shutdown so restart recovery has an honest record.
func (s *Store) FailInFlight(ctx context.Context, reason string) (int64, error) {
	args := make([]any, 0, len(processingStatuses)+3)
	args = append(args, StatusFailed, reason, time.Now().UTC().Format(time.RFC3339Nano))
	placeholders := makePlaceholders(len(processingStatuses))
	for status := range processingStatuses {
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE content_jobs
        SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+placeholders+`) AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight jobs: %w", err)
	}
	return res.RowsAffected()
}
