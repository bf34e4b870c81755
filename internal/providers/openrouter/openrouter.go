// Package openrouter provides the OpenRouter-backed language model.
package openrouter

import (
	"context"
	"log/slog"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/llm"
	"clipforge/internal/providers/chat"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "deepseek/deepseek-chat-v3-0324"
)

type completer struct {
	client *llm.Client
}

func (c *completer) Name() string { return "openrouter" }

func (c *completer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.client.Complete(ctx, systemPrompt, userPrompt)
}

func (c *completer) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.client.CompleteJSON(ctx, systemPrompt, userPrompt)
}

// New builds a language model backed by OpenRouter's chat completion API.
func New(cfg config.LLM, logger *slog.Logger, batchSize int, opts ...llm.Option) *chat.Model {
	clientCfg := llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        strings.TrimSpace(cfg.BaseURL),
		Model:          strings.TrimSpace(cfg.Model),
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = defaultBaseURL
	}
	if clientCfg.Model == "" {
		clientCfg.Model = defaultModel
	}
	client := llm.NewClient(clientCfg, opts...)
	return chat.NewModel(&completer{client: client}, chat.WithLogger(logger), chat.WithBatchSize(batchSize))
}
