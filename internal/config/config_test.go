package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	tmp := t.TempDir()
	cfg.Paths.StagingDir = filepath.Join(tmp, "staging")
	cfg.Paths.LogDir = filepath.Join(tmp, "logs")
	cfg.Storage.LocalDir = filepath.Join(tmp, "objects")
	cfg.Catalog.DBPath = filepath.Join(tmp, "catalog.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Quality.ApprovalThreshold != 70 || cfg.Quality.HighPriorityThreshold != 85 {
		t.Fatalf("default thresholds wrong: %+v", cfg.Quality)
	}
	if cfg.Providers.LLM != "openrouter" {
		t.Fatalf("default llm provider wrong: %q", cfg.Providers.LLM)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[providers]
llm = "deepseek"
stt = "mock"

[quality]
approval_threshold = 60
high_priority_threshold = 90
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Providers.LLM != "deepseek" || cfg.Providers.STT != "mock" {
		t.Fatalf("providers not applied: %+v", cfg.Providers)
	}
	if cfg.Quality.ApprovalThreshold != 60 || cfg.Quality.HighPriorityThreshold != 90 {
		t.Fatalf("thresholds not applied: %+v", cfg.Quality)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		mention string
	}{
		{"unknown llm", func(c *config.Config) { c.Providers.LLM = "gpt9" }, "providers.llm"},
		{"unknown stt", func(c *config.Config) { c.Providers.STT = "lipread" }, "providers.stt"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"inverted thresholds", func(c *config.Config) {
			c.Quality.ApprovalThreshold = 90
			c.Quality.HighPriorityThreshold = 80
		}, "high_priority_threshold"},
		{"bad language", func(c *config.Config) { c.Pipeline.TargetLanguages = []string{"!!"} }, "target_languages"},
		{"zero chunk", func(c *config.Config) { c.Pipeline.ChunkSize = 0 }, "chunk_size"},
		{"empty creator", func(c *config.Config) { c.Catalog.SystemCreatorID = " " }, "system_creator_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Fatalf("error %q does not mention %q", err, tc.mention)
			}
		})
	}
}
