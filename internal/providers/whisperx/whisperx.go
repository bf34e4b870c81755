// Package whisperx provides local speech-to-text via the whisperx command.
package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/services"
)

const (
	defaultBinary = "whisperx"
	defaultModel  = "large-v3"
	outputFormat  = "json"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service transcribes audio files with a local WhisperX installation.
type Service struct {
	binary string
	model  string
	run    CommandRunner
}

// NewService creates a WhisperX transcriber from the STT settings.
func NewService(cfg config.STT) *Service {
	svc := &Service{
		binary: strings.TrimSpace(cfg.WhisperXBinary),
		model:  strings.TrimSpace(cfg.WhisperXModel),
	}
	if svc.binary == "" {
		svc.binary = defaultBinary
	}
	if svc.model == "" {
		svc.model = defaultModel
	}
	return svc
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.run = runner
}

// Name identifies the provider.
func (s *Service) Name() string { return "whisperx" }

// HealthCheck verifies the binary is resolvable on PATH.
func (s *Service) HealthCheck(_ context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "health check",
			fmt.Sprintf("whisperx binary %q not found", s.binary), err)
	}
	return nil
}

// Transcribe runs WhisperX over an audio file and loads the timestamped
// transcript from the JSON it writes next to the source.
func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (content.TranscriptResult, error) {
	var result content.TranscriptResult
	if strings.TrimSpace(audioPath) == "" {
		return result, services.Wrap(services.ErrValidation, "transcribe", "whisperx", "audio path required", nil)
	}
	outputDir := filepath.Dir(audioPath)

	args := []string{
		audioPath,
		"--model", s.model,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
	}
	if lang := strings.TrimSpace(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if err := s.runCommand(ctx, s.binary, args...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "transcription command failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	result, err := loadTranscript(jsonPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "load transcript output", err)
	}
	if result.Language == "" {
		result.Language = language
	}
	return result, nil
}

func (s *Service) runCommand(ctx context.Context, name string, args ...string) error {
	if s.run != nil {
		return s.run(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

func loadTranscript(jsonPath string) (content.TranscriptResult, error) {
	var result content.TranscriptResult
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return result, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return result, fmt.Errorf("parse whisperx json: %w", err)
	}
	if len(payload.Segments) == 0 {
		return result, errors.New("whisperx output has no segments")
	}
	var parts []string
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		result.Segments = append(result.Segments, content.TranscriptSegment{
			StartMs: int64(seg.Start * 1000),
			EndMs:   int64(seg.End * 1000),
			Text:    text,
		})
	}
	result.Text = strings.Join(parts, " ")
	result.Language = strings.TrimSpace(payload.Language)
	result.Confidence = 1
	return result, nil
}
