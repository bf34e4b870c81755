package discovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/services"
)

// Searcher finds candidate source videos for a generated query.
type Searcher interface {
	Search(ctx context.Context, query content.SearchQuery, limit int) ([]content.VideoCandidate, error)
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FetcherSearcher uses the download tool's search mode. Results come back as
// one JSON document per line; no media is downloaded.
type FetcherSearcher struct {
	binary  string
	timeout time.Duration
	run     Runner
}

// NewFetcherSearcher creates a searcher backed by the configured fetcher
// binary.
func NewFetcherSearcher(cfg config.Media) *FetcherSearcher {
	binary := strings.TrimSpace(cfg.FetcherBinary)
	if binary == "" {
		binary = "yt-dlp"
	}
	timeout := 2 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &FetcherSearcher{binary: binary, timeout: timeout}
}

// WithRunner sets a custom command runner (for testing).
func (f *FetcherSearcher) WithRunner(runner Runner) {
	f.run = runner
}

// HealthCheck verifies the search binary resolves on PATH.
func (f *FetcherSearcher) HealthCheck(_ context.Context) error {
	if _, err := exec.LookPath(f.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, "discovery", "health check",
			fmt.Sprintf("binary %q not found", f.binary), err)
	}
	return nil
}

type searchResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Uploader    string `json:"uploader"`
	ViewCount   int64  `json:"view_count"`
	URL         string `json:"url"`
	WebpageURL  string `json:"webpage_url"`
}

// Search runs one search query and parses the line-delimited JSON results.
func (f *FetcherSearcher) Search(ctx context.Context, query content.SearchQuery, limit int) ([]content.VideoCandidate, error) {
	trimmed := strings.TrimSpace(query.Query)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "discovery", "search", "query is empty", nil)
	}
	if limit <= 0 {
		limit = 10
	}
	args := []string{
		fmt.Sprintf("ytsearch%d:%s", limit, trimmed),
		"--dump-json",
		"--flat-playlist",
		"--no-download",
		"--no-progress",
	}
	output, err := f.runCommand(ctx, f.binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "discovery", "search",
			fmt.Sprintf("search %q failed", trimmed), err)
	}

	var candidates []content.VideoCandidate
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var result searchResult
		if err := json.Unmarshal(line, &result); err != nil {
			// A single garbled line does not invalidate the rest.
			continue
		}
		if result.ID == "" {
			continue
		}
		channel := result.Channel
		if channel == "" {
			channel = result.Uploader
		}
		candidates = append(candidates, content.VideoCandidate{
			SourceID:    result.ID,
			Title:       result.Title,
			Description: result.Description,
			Channel:     channel,
			ViewCount:   result.ViewCount,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan search output: %w", err)
	}
	return candidates, nil
}

func (f *FetcherSearcher) runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.run != nil {
		return f.run(ctx, name, args...)
	}
	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// SourceURL builds the canonical watch URL for a candidate.
func SourceURL(candidate content.VideoCandidate) string {
	return "https://www.youtube.com/watch?v=" + candidate.SourceID
}
