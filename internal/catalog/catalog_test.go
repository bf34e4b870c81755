package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipforge/internal/content"
	"clipforge/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func publishInput(jobID int64, title string) PublishInput {
	return PublishInput{
		JobID:        jobID,
		SourceID:     "src-1",
		SourceURL:    "https://example.org/v/1",
		ClipKey:      "clips/job-1/final.mp4",
		ThumbnailKey: "clips/job-1/thumb.jpg",
		DurationMs:   45_000,
		CreatorID:    "system",
		QualityScore: 82,
		Metadata: []content.Metadata{
			{Title: title, Description: "d", Tags: []string{"go"}, Category: "tech", Difficulty: "beginner", Language: "en"},
		},
	}
}

func TestPublishWritesAllThreeTables(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Publish(ctx, publishInput(1, "Go in 60 seconds"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id == "" {
		t.Fatal("empty content id")
	}

	entry, err := store.Get(ctx, id, "en")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Title != "Go in 60 seconds" || entry.Language != "en" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	var views int
	if err := store.db.QueryRow(`SELECT view_count FROM content_interactions WHERE content_id = ?`, id).Scan(&views); err != nil {
		t.Fatalf("interactions row missing: %v", err)
	}
	if views != 0 {
		t.Fatalf("view_count = %d, want 0", views)
	}
}

func TestPublishIsIdempotentPerJob(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Publish(ctx, publishInput(7, "First"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Publish(ctx, publishInput(7, "Second attempt"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("republish minted a new id: %q vs %q", first, second)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestPublishRejectsMissingTitle(t *testing.T) {
	store := openTestStore(t)
	in := publishInput(3, "")
	_, err := store.Publish(context.Background(), in)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// The failed transaction must leave nothing behind.
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count = %d after rollback, want 0", count)
	}
}

func TestGetFallsBackAcrossLanguages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	in := publishInput(9, "English title")
	in.Metadata = append(in.Metadata, content.Metadata{Title: "Titre", Language: "fr"})
	id, err := store.Publish(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	entry, err := store.Get(ctx, id, "fr")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "Titre" {
		t.Fatalf("expected french metadata, got %q", entry.Title)
	}
	entry, err = store.Get(ctx, id, "de")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title == "" {
		t.Fatal("expected fallback metadata for unknown language")
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "no-such-id", "en")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecentTitlesAndCategoryCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		in := publishInput(int64(i+1), title)
		if i == 2 {
			in.Metadata[0].Category = "science"
		}
		if _, err := store.Publish(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	titles, err := store.RecentlyPublishedTitles(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(titles) != 2 {
		t.Fatalf("titles = %v, want 2 entries", titles)
	}

	counts, err := store.CategoryCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["tech"] != 2 || counts["science"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
