package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPublished(context.Background(), "Example", "abc"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsHeaders(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}
	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Review = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyReviewNeeded(context.Background(), "Go in 60 seconds", 88, 1); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.title != "Clipforge - Review Needed" {
		t.Fatalf("title = %q", got.title)
	}
	if got.tags != "clipforge,review,pending" {
		t.Fatalf("tags = %q", got.tags)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q, want high for jump-the-queue jobs", got.priority)
	}
	if got.body != "Awaiting review: Go in 60 seconds (score 88)" {
		t.Fatalf("body = %q", got.body)
	}
}

func TestNtfyServiceHonorsEventSwitches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Review = false
	cfg.Notifications.Publish = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyReviewNeeded(ctx, "t", 70, 0); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyPublished(ctx, "t", "id"); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyStageError(ctx, "edit", "t", nil); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("disabled events still sent %d requests", calls)
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
