package whisperapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeUploadsMultipartAndParsesSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("language"); got != "ko" {
			t.Errorf("language = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Write([]byte(`{"text":"hello world","language":"ko","segments":[
			{"start":0.0,"end":1.5,"text":" hello "},
			{"start":1.5,"end":3.0,"text":"world"}]}`))
	}))
	defer server.Close()

	svc := NewService(config.STT{APIKey: "sk-test", BaseURL: server.URL})
	result, err := svc.Transcribe(context.Background(), writeAudioFixture(t), "ko")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello world" || len(result.Segments) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Segments[1].StartMs != 1500 {
		t.Fatalf("timestamps not converted to ms: %+v", result.Segments[1])
	}
}

func TestTranscribeServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewService(config.STT{APIKey: "sk-test", BaseURL: server.URL})
	_, err := svc.Transcribe(context.Background(), writeAudioFixture(t), "en")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestTranscribeClientErrorIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewService(config.STT{APIKey: "sk-test", BaseURL: server.URL})
	_, err := svc.Transcribe(context.Background(), writeAudioFixture(t), "en")
	if errors.Is(err, services.ErrTransient) {
		t.Fatalf("auth failures must not be retryable: %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestHealthCheckRequiresAPIKey(t *testing.T) {
	svc := NewService(config.STT{})
	if err := svc.HealthCheck(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
