package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "Clipforge-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyReviewNeeded(ctx context.Context, title string, score, priority int) error
	NotifyPublished(ctx context.Context, title, contentID string) error
	NotifyStageError(ctx context.Context, stageName, title string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		reviewOn:  cfg.Notifications.Review,
		publishOn: cfg.Notifications.Publish,
		errorsOn:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	reviewOn  bool
	publishOn bool
	errorsOn  bool
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, title string, score, priority int) error {
	if !n.reviewOn {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Clipforge - Review Needed",
		message: fmt.Sprintf("Awaiting review: %s (score %d)", title, score),
		tags:    []string{"clipforge", "review", "pending"},
	}
	if priority > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title, contentID string) error {
	if !n.publishOn {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Clipforge - Published",
		message: fmt.Sprintf("Live in catalog: %s\nContent: %s", title, contentID),
		tags:    []string{"clipforge", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageError(ctx context.Context, stageName, title string, err error) error {
	if !n.errorsOn {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if stageName = strings.TrimSpace(stageName); stageName != "" {
		builder.WriteString(" in ")
		builder.WriteString(stageName)
	}
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(" for ")
		builder.WriteString(title)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title:    "Clipforge - Error",
		message:  builder.String(),
		tags:     []string{"clipforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipforge - Test",
		message:  "Notification system test",
		tags:     []string{"clipforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReviewNeeded(context.Context, string, int, int) error { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error     { return nil }
func (noopService) NotifyStageError(context.Context, string, string, error) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }

// Noop returns a notifier that drops everything (used in tests).
func Noop() Service { return noopService{} }
