package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, source_url, source_id, title, language, status, video_path, audio_path, clip_key, thumbnail_key, evaluation_json, transcript_json, segments_json, edit_plan_json, metadata_json, score_json, quality_score, review_priority, review_note, content_id, error_message, retry_count, progress_stage, progress_percent, progress_message, created_at, updated_at, last_heartbeat, deleted_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		sourceURL        sql.NullString
		sourceID         sql.NullString
		title            sql.NullString
		language         sql.NullString
		statusStr        string
		videoPath        sql.NullString
		audioPath        sql.NullString
		clipKey          sql.NullString
		thumbnailKey     sql.NullString
		evaluationJSON   sql.NullString
		transcriptJSON   sql.NullString
		segmentsJSON     sql.NullString
		editPlanJSON     sql.NullString
		metadataJSON     sql.NullString
		scoreJSON        sql.NullString
		qualityScore     sql.NullInt64
		reviewPriority   sql.NullInt64
		reviewNote       sql.NullString
		contentID        sql.NullString
		errorMessage     sql.NullString
		retryCount       sql.NullInt64
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
		deletedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&sourceID,
		&title,
		&language,
		&statusStr,
		&videoPath,
		&audioPath,
		&clipKey,
		&thumbnailKey,
		&evaluationJSON,
		&transcriptJSON,
		&segmentsJSON,
		&editPlanJSON,
		&metadataJSON,
		&scoreJSON,
		&qualityScore,
		&reviewPriority,
		&reviewNote,
		&contentID,
		&errorMessage,
		&retryCount,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
		&deletedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourceURL:       sourceURL.String,
		SourceID:        sourceID.String,
		Title:           title.String,
		Language:        language.String,
		Status:          Status(statusStr),
		VideoPath:       videoPath.String,
		AudioPath:       audioPath.String,
		ClipKey:         clipKey.String,
		ThumbnailKey:    thumbnailKey.String,
		EvaluationJSON:  evaluationJSON.String,
		TranscriptJSON:  transcriptJSON.String,
		SegmentsJSON:    segmentsJSON.String,
		EditPlanJSON:    editPlanJSON.String,
		MetadataJSON:    metadataJSON.String,
		ScoreJSON:       scoreJSON.String,
		QualityScore:    int(qualityScore.Int64),
		ReviewPriority:  int(reviewPriority.Int64),
		ReviewNote:      reviewNote.String,
		ContentID:       contentID.String,
		ErrorMessage:    errorMessage.String,
		RetryCount:      int(retryCount.Int64),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	if deletedRaw.Valid {
		if deleted, err := parseTimeString(deletedRaw.String); err == nil {
			job.DeletedAt = &deleted
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
