// Package media wraps the external ffmpeg and fetcher binaries. Commands are
// treated as black boxes; everything is testable through the injectable
// runner.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/services"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Service shells out to ffmpeg and the video fetcher.
type Service struct {
	ffmpeg  string
	fetcher string
	timeout time.Duration
	run     Runner
}

// NewService creates a media service from configuration.
func NewService(cfg config.Media) *Service {
	timeout := 10 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	svc := &Service{
		ffmpeg:  strings.TrimSpace(cfg.FFmpegBinary),
		fetcher: strings.TrimSpace(cfg.FetcherBinary),
		timeout: timeout,
	}
	if svc.ffmpeg == "" {
		svc.ffmpeg = "ffmpeg"
	}
	if svc.fetcher == "" {
		svc.fetcher = "yt-dlp"
	}
	return svc
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner Runner) {
	s.run = runner
}

// HealthCheck verifies both binaries resolve on PATH.
func (s *Service) HealthCheck(_ context.Context) error {
	for _, binary := range []string{s.ffmpeg, s.fetcher} {
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrConfiguration, "media", "health check",
				fmt.Sprintf("binary %q not found", binary), err)
		}
	}
	return nil
}

func (s *Service) runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.run != nil {
		return s.run(ctx, name, args...)
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// Fetch downloads a source video into destDir and returns the resulting file
// path. The fetcher is told exactly where to put the file so no output
// parsing is needed.
func (s *Service) Fetch(ctx context.Context, sourceURL, destDir, baseName string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", services.Wrap(services.ErrValidation, "media", "fetch", "source url required", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create fetch dir: %w", err)
	}
	dest := filepath.Join(destDir, baseName+".mp4")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"-o", dest,
		sourceURL,
	}
	if _, err := s.runCommand(ctx, s.fetcher, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "media", "fetch", "source download failed", err)
	}
	if _, err := os.Stat(dest); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "media", "fetch",
			fmt.Sprintf("fetcher reported success but %s is missing", dest), err)
	}
	return dest, nil
}

// ExtractAudio produces a mono 16kHz WAV suitable for transcription.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		dest,
	}
	if _, err := s.runCommand(ctx, s.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "extract audio", "audio extraction failed", err)
	}
	return nil
}

// RenderClips cuts each planned clip from the source and concatenates them
// in plan order into dest.
func (s *Service) RenderClips(ctx context.Context, source string, plan content.EditPlan, workDir, dest string) error {
	if len(plan.Clips) == 0 {
		return services.Wrap(services.ErrValidation, "media", "render clips", "edit plan has no clips", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create render dir: %w", err)
	}

	partPaths := make([]string, 0, len(plan.Clips))
	for i, clip := range plan.Clips {
		part := filepath.Join(workDir, fmt.Sprintf("part_%03d.mp4", i))
		args := []string{
			"-y",
			"-ss", fmtMilliseconds(clip.StartMs),
			"-to", fmtMilliseconds(clip.EndMs),
			"-i", source,
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-crf", "18",
			"-c:a", "aac",
			"-b:a", "192k",
			part,
		}
		if _, err := s.runCommand(ctx, s.ffmpeg, args...); err != nil {
			return services.Wrap(services.ErrExternalTool, "media", "render clips",
				fmt.Sprintf("clip %d render failed", clip.OrderIndex), err)
		}
		partPaths = append(partPaths, part)
	}

	if len(partPaths) == 1 {
		if err := os.Rename(partPaths[0], dest); err != nil {
			return fmt.Errorf("finalize single clip: %w", err)
		}
		return nil
	}

	listPath := filepath.Join(workDir, "concat.txt")
	var list strings.Builder
	for _, part := range partPaths {
		fmt.Fprintf(&list, "file '%s'\n", part)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	if _, err := s.runCommand(ctx, s.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "render clips", "clip concatenation failed", err)
	}
	return nil
}

// Thumbnail grabs a single frame at the given offset.
func (s *Service) Thumbnail(ctx context.Context, source string, atMs int64, dest string) error {
	args := []string{
		"-y",
		"-ss", fmtMilliseconds(atMs),
		"-i", source,
		"-frames:v", "1",
		"-q:v", "3",
		dest,
	}
	if _, err := s.runCommand(ctx, s.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "media", "thumbnail", "thumbnail capture failed", err)
	}
	return nil
}

// ProbeDurationMs returns the container duration reported by ffprobe-style
// output from ffmpeg's sibling; the fetcher's metadata is preferred, this is
// the fallback for local files.
func (s *Service) ProbeDurationMs(ctx context.Context, source string) (int64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	}
	output, err := s.runCommand(ctx, probeBinaryFor(s.ffmpeg), args...)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe duration", "ffprobe failed", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return int64(seconds * 1000), nil
}

func probeBinaryFor(ffmpeg string) string {
	dir, base := filepath.Split(ffmpeg)
	if strings.Contains(base, "ffmpeg") {
		return filepath.Join(dir, strings.Replace(base, "ffmpeg", "ffprobe", 1))
	}
	return "ffprobe"
}

func fmtMilliseconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}
