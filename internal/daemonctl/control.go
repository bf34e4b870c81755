// Package daemonctl lets the CLI drive a running daemon over its local HTTP
// API and manage the daemon process itself via its pid file.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/review"
)

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the API bind address from config.
func NewClient(cfg *config.Config) (*Client, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api_bind is not configured")
	}
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return &Client{
		baseURL: "http://" + bind,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type jobListEnvelope struct {
	Jobs []daemon.JobView `json:"jobs"`
}

type jobEnvelope struct {
	Job daemon.JobView `json:"job"`
}

type pendingListEnvelope struct {
	Pending []daemon.PendingView `json:"pending"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// Status fetches daemon runtime status.
func (c *Client) Status(ctx context.Context) (*daemon.StatusResponse, error) {
	var status daemon.StatusResponse
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Queue lists queue jobs, optionally filtered by status names.
func (c *Client) Queue(ctx context.Context, statuses ...string) ([]daemon.JobView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		params := make([]string, 0, len(statuses))
		for _, status := range statuses {
			params = append(params, "status="+status)
		}
		path += "?" + strings.Join(params, "&")
	}
	var envelope jobListEnvelope
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Jobs, nil
}

// QueueJob fetches a single queue job.
func (c *Client) QueueJob(ctx context.Context, id int64) (*daemon.JobView, error) {
	var envelope jobEnvelope
	if err := c.get(ctx, fmt.Sprintf("/api/queue/%d", id), &envelope); err != nil {
		return nil, err
	}
	return &envelope.Job, nil
}

// Review lists the pending review queue.
func (c *Client) Review(ctx context.Context) ([]daemon.PendingView, error) {
	var envelope pendingListEnvelope
	if err := c.get(ctx, "/api/review", &envelope); err != nil {
		return nil, err
	}
	return envelope.Pending, nil
}

// ReviewJob fetches one job awaiting review.
func (c *Client) ReviewJob(ctx context.Context, id int64) (*daemon.JobView, error) {
	var envelope jobEnvelope
	if err := c.get(ctx, fmt.Sprintf("/api/review/%d", id), &envelope); err != nil {
		return nil, err
	}
	return &envelope.Job, nil
}

// Approve publishes the reviewer's decision, with optional metadata edits.
func (c *Client) Approve(ctx context.Context, id int64, edits review.Edits) (*daemon.JobView, error) {
	payload := map[string]any{
		"title":       edits.Title,
		"description": edits.Description,
		"category":    edits.Category,
		"tags":        edits.Tags,
	}
	var envelope jobEnvelope
	if err := c.post(ctx, fmt.Sprintf("/api/review/%d/approve", id), payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Job, nil
}

// Reject records a rejection with a mandatory reason.
func (c *Client) Reject(ctx context.Context, id int64, reason string) (*daemon.JobView, error) {
	var envelope jobEnvelope
	if err := c.post(ctx, fmt.Sprintf("/api/review/%d/reject", id), map[string]any{"reason": reason}, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Job, nil
}

// RequestEdit sends a job back to the editor with a note.
func (c *Client) RequestEdit(ctx context.Context, id int64, note string) (*daemon.JobView, error) {
	var envelope jobEnvelope
	if err := c.post(ctx, fmt.Sprintf("/api/review/%d/request-edit", id), map[string]any{"note": note}, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Job, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr errorEnvelope
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// Launch starts a detached daemon process.
func Launch(executablePath, configPath string) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"daemon", "run"}
	if cfg := strings.TrimSpace(configPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI polls the daemon API until it responds or the timeout expires.
func (c *Client) WaitForAPI(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if _, err := c.Status(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// PIDPath returns the daemon pid file location for a config.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "clipforge.pid")
}

// ReadPID reads the daemon pid file. A missing file returns 0 with no error.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s is malformed", PIDPath(cfg))
	}
	return pid, nil
}

// ProcessRunning reports whether the pid refers to a live process.
func ProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// StopProcess asks the daemon process to shut down and waits for it to exit.
func StopProcess(pid int, timeout time.Duration) error {
	if pid <= 0 {
		return errors.New("daemon is not running")
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("signal daemon: %w", err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessRunning(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon pid %d did not exit within %s", pid, timeout)
}
