package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

func TestTranscribeParsesJSONOutput(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(config.STT{WhisperXBinary: "whisperx-test"})
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "whisperx-test" {
			t.Errorf("unexpected binary %q", name)
		}
		gotArgs = args
		payload := `{"language":"en","segments":[
			{"text":" hello there ","start":0.5,"end":2.25},
			{"text":"","start":2.25,"end":3.0},
			{"text":"second segment","start":3.0,"end":5.5}]}`
		return os.WriteFile(filepath.Join(dir, "clip.json"), []byte(payload), 0o644)
	})

	result, err := svc.Transcribe(context.Background(), audioPath, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello there second segment" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("blank segment should be dropped, got %d", len(result.Segments))
	}
	if result.Segments[0].StartMs != 500 || result.Segments[0].EndMs != 2250 {
		t.Fatalf("timestamps not converted to ms: %+v", result.Segments[0])
	}
	if result.Language != "en" {
		t.Fatalf("language = %q", result.Language)
	}
	if len(gotArgs) == 0 || gotArgs[0] != audioPath {
		t.Fatalf("audio path not passed to command: %v", gotArgs)
	}
}

func TestTranscribeCommandFailureIsExternalTool(t *testing.T) {
	svc := NewService(config.STT{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})
	_, err := svc.Transcribe(context.Background(), "/tmp/missing.wav", "en")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestTranscribeRequiresAudioPath(t *testing.T) {
	svc := NewService(config.STT{})
	_, err := svc.Transcribe(context.Background(), "  ", "en")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
