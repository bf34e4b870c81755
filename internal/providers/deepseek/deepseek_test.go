package deepseek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/config"
)

func TestCompleteJSONHitsChatCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("missing auth header, got %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	client := NewClient(config.DeepSeek{APIKey: "sk-test", BaseURL: server.URL})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(config.DeepSeek{})
	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient(config.DeepSeek{APIKey: "sk-test", BaseURL: server.URL})
	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected api error")
	}
}
