// Package whisperapi provides speech-to-text through an OpenAI-compatible
// hosted transcription endpoint.
package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 5 * time.Minute
)

// Service transcribes audio files through a hosted whisper API.
type Service struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the service.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewService creates a hosted-whisper transcriber from the STT settings.
func NewService(cfg config.STT, opts ...Option) *Service {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	svc := &Service{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.baseURL == "" {
		svc.baseURL = defaultBaseURL
	}
	if svc.model == "" {
		svc.model = defaultModel
	}
	return svc
}

// Name identifies the provider.
func (s *Service) Name() string { return "whisperapi" }

// HealthCheck verifies an API key is configured.
func (s *Service) HealthCheck(_ context.Context) error {
	if s.apiKey == "" {
		return services.Wrap(services.ErrConfiguration, "transcribe", "health check", "whisper api key required", nil)
	}
	return nil
}

// Transcribe uploads the audio file and returns the timestamped transcript.
func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (content.TranscriptResult, error) {
	var result content.TranscriptResult
	if s.apiKey == "" {
		return result, services.Wrap(services.ErrConfiguration, "transcribe", "whisperapi", "api key required", nil)
	}
	audio, err := os.Open(audioPath)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "transcribe", "whisperapi", "open audio file", err)
	}
	defer audio.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return result, fmt.Errorf("whisperapi: build form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return result, fmt.Errorf("whisperapi: copy audio: %w", err)
	}
	_ = writer.WriteField("model", s.model)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("timestamp_granularities[]", "segment")
	if lang := strings.TrimSpace(language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("whisperapi: finalize form: %w", err)
	}

	endpoint, err := url.JoinPath(s.baseURL, "/audio/transcriptions")
	if err != nil {
		return result, fmt.Errorf("whisperapi: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return result, fmt.Errorf("whisperapi: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "transcribe", "whisperapi", "transcription request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "transcribe", "whisperapi", "read response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return result, services.Wrap(services.ErrTransient, "transcribe", "whisperapi",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarize(body)), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperapi",
			fmt.Sprintf("http %d: %s", resp.StatusCode, summarize(body)), nil)
	}

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperapi", "decode response", err)
	}

	result.Text = strings.TrimSpace(payload.Text)
	result.Language = strings.TrimSpace(payload.Language)
	if result.Language == "" {
		result.Language = language
	}
	result.Confidence = 1
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, content.TranscriptSegment{
			StartMs: int64(seg.Start * 1000),
			EndMs:   int64(seg.End * 1000),
			Text:    text,
		})
	}
	return result, nil
}

func summarize(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200] + "..."
	}
	return trimmed
}
