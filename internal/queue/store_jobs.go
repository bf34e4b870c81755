package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewJob inserts a pending job for a discovered source video. A live job with
// the same source id short-circuits to the existing row so discovery reruns
// never duplicate work.
func (s *Store) NewJob(ctx context.Context, sourceURL, sourceID, title, language string) (*Job, error) {
	if sourceID != "" {
		existing, err := s.FindBySourceID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO content_jobs (
            source_url, source_id, title, language, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableString(sourceURL),
		nullableString(sourceID),
		nullableString(title),
		nullableString(language),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a live job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM content_jobs WHERE id = ? AND deleted_at IS NULL`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindBySourceID returns the first live job matching a source id.
func (s *Store) FindBySourceID(ctx context.Context, sourceID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM content_jobs WHERE source_id = ? AND deleted_at IS NULL ORDER BY id LIMIT 1`,
		sourceID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source id: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE content_jobs
         SET source_url = ?, source_id = ?, title = ?, language = ?, status = ?,
             video_path = ?, audio_path = ?, clip_key = ?, thumbnail_key = ?,
             evaluation_json = ?, transcript_json = ?, segments_json = ?, edit_plan_json = ?,
             metadata_json = ?, score_json = ?, quality_score = ?,
             review_priority = ?, review_note = ?, content_id = ?,
             error_message = ?, retry_count = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, updated_at = ?,
             last_heartbeat = ?
         WHERE id = ? AND deleted_at IS NULL`,
		nullableString(job.SourceURL),
		nullableString(job.SourceID),
		nullableString(job.Title),
		nullableString(job.Language),
		job.Status,
		nullableString(job.VideoPath),
		nullableString(job.AudioPath),
		nullableString(job.ClipKey),
		nullableString(job.ThumbnailKey),
		nullableString(job.EvaluationJSON),
		nullableString(job.TranscriptJSON),
		nullableString(job.SegmentsJSON),
		nullableString(job.EditPlanJSON),
		nullableString(job.MetadataJSON),
		nullableString(job.ScoreJSON),
		job.QualityScore,
		job.ReviewPriority,
		nullableString(job.ReviewNote),
		nullableString(job.ContentID),
		nullableString(job.ErrorMessage),
		job.RetryCount,
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return s.syncPending(ctx, job)
}

// List returns live jobs filtered by status set (or all jobs when no status
// is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM content_jobs WHERE deleted_at IS NULL`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` AND status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest live job matching any of the provided
// statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM content_jobs
        WHERE status IN (` + placeholders + `) AND deleted_at IS NULL
        ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ChunkForStatuses returns up to limit oldest live jobs matching any of the
// provided statuses.
func (s *Store) ChunkForStatuses(ctx context.Context, limit int, statuses ...Status) ([]*Job, error) {
	if len(statuses) == 0 || limit <= 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, limit)

	query := `SELECT ` + jobColumns + ` FROM content_jobs
        WHERE status IN (` + placeholders + `) AND deleted_at IS NULL
        ORDER BY created_at LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chunk jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SoftDelete marks a job as deleted without removing the row.
func (s *Store) SoftDelete(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE content_jobs SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("soft delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of live jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM content_jobs WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusPendingApproval:
			health.AwaitingReview += count
		case StatusPublished:
			health.Published += count
		case StatusRejected:
			health.Rejected += count
		case StatusFailed:
			health.Failed += count
		default:
			if IsProcessingStatus(status) {
				health.Processing += count
			}
		}
	}
	return health, nil
}
