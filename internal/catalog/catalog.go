// Package catalog is the serving-side boundary. Published content lives in its
// own SQLite database, separate from the work queue, so the serving surface
// never sees in-flight jobs.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/services"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store provides access to the published-content catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the catalog database at the configured path.
func Open(cfg *config.Config) (*Store, error) {
	path := cfg.Catalog.DBPath
	if path == "" {
		path = filepath.Join(cfg.Paths.StagingDir, "catalog.db")
	}
	return OpenPath(path)
}

// OpenPath opens the catalog database at an explicit path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize catalog schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// PublishInput carries everything one publish transaction writes.
type PublishInput struct {
	JobID        int64
	SourceID     string
	SourceURL    string
	ClipKey      string
	ThumbnailKey string
	DurationMs   int64
	CreatorID    string
	QualityScore int
	Metadata     []content.Metadata
}

// Entry is one published content row joined with its primary metadata.
type Entry struct {
	ID           string
	JobID        int64
	ClipKey      string
	ThumbnailKey string
	DurationMs   int64
	CreatorID    string
	QualityScore int
	PublishedAt  time.Time
	Title        string
	Category     string
	Language     string
}

// Publish writes content, per-language metadata, and zeroed interaction
// counters in one transaction and returns the new content id. A job that was
// already published returns the existing id, so retries after a crash between
// commit and queue update are safe.
func (s *Store) Publish(ctx context.Context, in PublishInput) (string, error) {
	if in.ClipKey == "" {
		return "", services.Wrap(services.ErrValidation, "catalog", "publish", "clip key required", nil)
	}
	if len(in.Metadata) == 0 {
		return "", services.Wrap(services.ErrValidation, "catalog", "publish", "at least one metadata language required", nil)
	}
	if in.CreatorID == "" {
		return "", services.Wrap(services.ErrConfiguration, "catalog", "publish", "system creator id required", nil)
	}

	if existing, err := s.idForJob(ctx, in.JobID); err != nil {
		return "", err
	} else if existing != "" {
		return existing, nil
	}

	contentID := uuid.NewString()
	publishedAt := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin publish transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content (id, job_id, source_id, source_url, clip_key, thumbnail_key,
            duration_ms, creator_id, quality_score, published_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contentID, in.JobID, in.SourceID, in.SourceURL, in.ClipKey, in.ThumbnailKey,
		in.DurationMs, in.CreatorID, in.QualityScore, publishedAt,
	); err != nil {
		return "", fmt.Errorf("insert content: %w", err)
	}

	for _, meta := range in.Metadata {
		if strings.TrimSpace(meta.Title) == "" {
			return "", services.Wrap(services.ErrValidation, "catalog", "publish",
				fmt.Sprintf("metadata for language %q has no title", meta.Language), nil)
		}
		tags, err := json.Marshal(meta.Tags)
		if err != nil {
			return "", fmt.Errorf("encode tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_metadata (content_id, language, title, description, tags, category, difficulty)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			contentID, meta.Language, meta.Title, meta.Description, string(tags), meta.Category, meta.Difficulty,
		); err != nil {
			return "", fmt.Errorf("insert metadata (%s): %w", meta.Language, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content_interactions (content_id) VALUES (?)`, contentID,
	); err != nil {
		return "", fmt.Errorf("insert interactions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit publish: %w", err)
	}
	return contentID, nil
}

func (s *Store) idForJob(ctx context.Context, jobID int64) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM content WHERE job_id = ?`, jobID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup content for job %d: %w", jobID, err)
	}
	return id, nil
}

// Get fetches a published entry by content id. Title and category come from
// the requested language, falling back to any available language.
func (s *Store) Get(ctx context.Context, contentID, language string) (*Entry, error) {
	entry := &Entry{}
	var publishedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, clip_key, COALESCE(thumbnail_key, ''), duration_ms,
            creator_id, quality_score, published_at
         FROM content WHERE id = ?`, contentID,
	).Scan(&entry.ID, &entry.JobID, &entry.ClipKey, &entry.ThumbnailKey,
		&entry.DurationMs, &entry.CreatorID, &entry.QualityScore, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get",
			fmt.Sprintf("content %q not found", contentID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	if entry.PublishedAt, err = time.Parse(time.RFC3339Nano, publishedAt); err != nil {
		return nil, fmt.Errorf("parse published_at: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT title, COALESCE(category, ''), language FROM content_metadata
         WHERE content_id = ?
         ORDER BY CASE WHEN language = ? THEN 0 ELSE 1 END, language
         LIMIT 1`, contentID, language,
	).Scan(&entry.Title, &entry.Category, &entry.Language)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get content metadata: %w", err)
	}
	return entry, nil
}

// RecentlyPublishedTitles returns the titles of the most recently published
// entries, newest first. Used to steer discovery away from repeats.
func (s *Store) RecentlyPublishedTitles(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.title FROM content c
         JOIN content_metadata m ON m.content_id = c.id
         GROUP BY c.id
         ORDER BY c.published_at DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// CategoryCounts returns how many published entries each category has.
// Categories absent from the catalog simply have no key.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(category, ''), COUNT(DISTINCT content_id)
         FROM content_metadata GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		if category != "" {
			counts[category] = count
		}
	}
	return counts, rows.Err()
}

// Count returns the total number of published entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM content`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return count, nil
}
