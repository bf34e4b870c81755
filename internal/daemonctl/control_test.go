package daemonctl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func clientFor(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.APIBind = strings.TrimPrefix(server.URL, "http://")
	client, err := NewClient(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestClientStatusAndQueue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/status":
			w.Write([]byte(`{"running":true,"pid":42}`))
		case "/api/queue":
			if got := r.URL.RawQuery; got != "status=pending" {
				t.Errorf("query = %q", got)
			}
			w.Write([]byte(`{"jobs":[{"id":7,"title":"Video","status":"pending"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()
	client := clientFor(t, server)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("status = %+v", status)
	}

	jobs, err := client.Queue(context.Background(), "pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != 7 {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"job 3 is not awaiting review"}`))
	}))
	defer server.Close()
	client := clientFor(t, server)

	_, err := client.Reject(context.Background(), 3, "dup")
	if err == nil || !strings.Contains(err.Error(), "not awaiting review") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewClientRequiresBind(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ""
	if _, err := NewClient(&cfg); err == nil {
		t.Fatal("expected error without api_bind")
	}
}

func TestReadPID(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	pid, err := ReadPID(&cfg)
	if err != nil || pid != 0 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}

	if err := os.WriteFile(filepath.Join(cfg.Paths.LogDir, "clipforge.pid"), []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, err = ReadPID(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if pid != 1234 {
		t.Fatalf("pid = %d, want 1234", pid)
	}

	if err := os.WriteFile(filepath.Join(cfg.Paths.LogDir, "clipforge.pid"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(&cfg); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
}
