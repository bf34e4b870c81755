// Package textutil compares video titles and sanitizes identifiers for
// storage keys.
//
// Discovery fingerprints candidate titles as term-frequency vectors, weights
// them by inverse document frequency over recently published titles, and
// drops candidates whose cosine similarity to a published title crosses the
// duplicate threshold. The edit stage uses SanitizeToken to turn source ids
// into object-key segments.
package textutil
