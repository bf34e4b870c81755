// Package metagen produces machine-generated descriptive metadata for a
// finished edit, one instance per target language.
package metagen

import (
	"context"
	"fmt"
	"log/slog"

	"clipforge/internal/content"
	"clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/providers"
	"clipforge/internal/services"
)

// Generator asks the language model for per-language metadata.
type Generator struct {
	model  providers.LanguageModel
	logger *slog.Logger
}

// NewGenerator constructs a metadata generator.
func NewGenerator(model providers.LanguageModel, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, logger: logger}
}

// Generate returns one metadata instance per requested language, the job's
// own language first. The model substitutes a placeholder derived from the
// source title when its output is malformed, so every language gets an
// instance or the call fails outright.
func (g *Generator) Generate(ctx context.Context, sourceTitle, transcriptText string, languages []string) ([]content.Metadata, error) {
	if len(languages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "metagen", "generate", "no target languages", nil)
	}

	log := logging.WithContext(ctx, g.logger)
	seen := make(map[string]struct{}, len(languages))
	out := make([]content.Metadata, 0, len(languages))
	for _, language := range languages {
		if language == "" {
			continue
		}
		if _, dup := seen[language]; dup {
			continue
		}
		seen[language] = struct{}{}

		meta, err := g.model.GenerateMetadata(ctx, sourceTitle, transcriptText, language)
		if err != nil {
			return nil, fmt.Errorf("generate metadata (%s): %w", language, err)
		}
		meta.Language = language
		out = append(out, meta)
		log.Debug("metadata generated", slog.String("language", language), slog.String("title", meta.Title))
	}
	if len(out) == 0 {
		return nil, services.Wrap(services.ErrValidation, "metagen", "generate", "no usable target languages", nil)
	}
	return out, nil
}

// Languages builds the ordered language list for a job: its own language
// first, then the configured targets. Codes are canonicalized so "EN" and
// "en-US" do not produce duplicate metadata rows.
func Languages(jobLanguage string, targets []string) []string {
	combined := make([]string, 0, len(targets)+1)
	combined = append(combined, jobLanguage)
	combined = append(combined, targets...)
	languages := language.NormalizeList(combined)
	if len(languages) == 0 {
		languages = append(languages, "en")
	}
	return languages
}
