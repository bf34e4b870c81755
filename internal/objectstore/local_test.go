package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestLocalPutGetRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "clips/job-1/final.mp4", strings.NewReader("video-bytes"), "video/mp4"); err != nil {
		t.Fatalf("put: %v", err)
	}
	reader, err := store.Get(ctx, "clips/job-1/final.mp4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	exists, err := store.Exists(ctx, "clips/job-1/final.mp4")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
}

func TestLocalGetMissingIsNotFound(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Get(context.Background(), "missing/key")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocalDeleteIsIdempotent(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, "a/b", strings.NewReader("x"), ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "/", "../etc/passwd", "a/../b", "a//b", "."} {
		if _, err := CleanKey(key); !errors.Is(err, services.ErrValidation) {
			t.Errorf("CleanKey(%q) should fail validation, got %v", key, err)
		}
	}
	cleaned, err := CleanKey("/clips/job-1/final.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if cleaned != "clips/job-1/final.mp4" {
		t.Fatalf("cleaned = %q", cleaned)
	}
}

func TestLocalURLIsFileScheme(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	url, err := store.URL(context.Background(), "clips/x.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "clips/x.mp4") {
		t.Fatalf("unexpected url %q", url)
	}
}
