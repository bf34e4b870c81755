package textutil

import "strings"

// SanitizeToken lowercases a source identifier into an object-key-safe
// segment. Letters, digits, hyphens, and underscores pass through; anything
// else becomes an underscore. An identifier with nothing salvageable comes
// back as "unknown" so key construction never produces an empty segment.
func SanitizeToken(value string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	mapped = strings.Trim(mapped, "_-")
	if mapped == "" {
		return "unknown"
	}
	return mapped
}
