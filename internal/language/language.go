// Package language canonicalizes the language codes that flow between
// configuration, discovery, transcription, and metadata generation. All
// parsing defers to golang.org/x/text so "EN", "en-US", and "eng" collapse
// to the same base tag.
package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize reduces a language code to its base BCP 47 form ("en", "ko").
// Unrecognized input returns the empty string.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for a language code, or "Unknown"
// when the code cannot be parsed.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return "Unknown"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}

// NormalizeList normalizes and deduplicates a list of codes, preserving
// first-seen order. Unrecognized entries are dropped.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized := Normalize(code)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
