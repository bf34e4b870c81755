package providers

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

func TestNewLanguageModelSelectsByName(t *testing.T) {
	cfg := config.Default()
	for _, name := range []string{"openrouter", "deepseek", "mock"} {
		cfg.Providers.LLM = name
		model, err := NewLanguageModel(&cfg, logging.NewNop())
		if err != nil {
			t.Fatalf("NewLanguageModel(%q): %v", name, err)
		}
		if model == nil {
			t.Fatalf("NewLanguageModel(%q) returned nil", name)
		}
	}
}

func TestNewLanguageModelUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.LLM = "gpt9"
	if _, err := NewLanguageModel(&cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewTranscriberSelectsByName(t *testing.T) {
	cfg := config.Default()
	for _, name := range []string{"whisperx", "whisperapi", "mock"} {
		cfg.Providers.STT = name
		transcriber, err := NewTranscriber(&cfg)
		if err != nil {
			t.Fatalf("NewTranscriber(%q): %v", name, err)
		}
		if transcriber.Name() != name {
			t.Fatalf("transcriber name = %q, want %q", transcriber.Name(), name)
		}
	}
}

func TestNewTranscriberUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.STT = "dictation"
	if _, err := NewTranscriber(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMockProvidersSatisfyInterfaces(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.LLM = "mock"
	cfg.Providers.STT = "mock"

	model, err := NewLanguageModel(&cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	transcript, err := func() (Transcriber, error) { return NewTranscriber(&cfg) }()
	if err != nil {
		t.Fatal(err)
	}
	result, err := transcript.Transcribe(context.Background(), "/dev/null", "en")
	if err != nil {
		t.Fatalf("mock transcribe: %v", err)
	}
	plan, err := model.GenerateEditPlan(context.Background(), result)
	if err != nil {
		t.Fatalf("mock edit plan: %v", err)
	}
	if len(plan.Clips) == 0 {
		t.Fatal("mock edit plan has no clips")
	}
}
