package textutil

import (
	"math"
	"strings"
)

// Fingerprint is a weighted bag of title terms. Discovery builds one per
// candidate and per recently published title to measure topical overlap.
type Fingerprint struct {
	weights   map[string]float64
	magnitude float64
}

// NewFingerprint builds a term-frequency fingerprint from a title. Titles
// with no usable terms (empty, or nothing but short stopwords) yield nil,
// which every operation in this package treats as "matches nothing".
func NewFingerprint(title string) *Fingerprint {
	terms := tokenize(title)
	if len(terms) == 0 {
		return nil
	}
	weights := make(map[string]float64, len(terms))
	for _, term := range terms {
		weights[term]++
	}
	return newWeighted(weights)
}

// WithIDF reweights the fingerprint by inverse document frequency, so terms
// that appear in most published titles ("tutorial", "beginner") stop
// dominating the comparison. Terms the corpus has never seen keep their raw
// weight: a brand-new topic word is exactly the signal worth preserving.
func (f *Fingerprint) WithIDF(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weights := make(map[string]float64, len(f.weights))
	for term, weight := range f.weights {
		if factor, ok := idf[term]; ok {
			weight *= factor
		}
		if weight > 0 {
			weights[term] = weight
		}
	}
	if len(weights) == 0 {
		return nil
	}
	return newWeighted(weights)
}

func newWeighted(weights map[string]float64) *Fingerprint {
	var sum float64
	for _, weight := range weights {
		sum += weight * weight
	}
	if sum == 0 {
		return nil
	}
	return &Fingerprint{weights: weights, magnitude: math.Sqrt(sum)}
}

// tokenize lowercases a title and keeps runs of ASCII letters and digits at
// least three characters long.
func tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 3 {
			continue
		}
		terms = append(terms, field)
	}
	return terms
}

// Corpus accumulates how many titles each term appears in.
type Corpus struct {
	titles int
	seenIn map[string]int
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{seenIn: make(map[string]int)}
}

// Add counts a title's distinct terms into the corpus.
func (c *Corpus) Add(fp *Fingerprint) {
	if c == nil || fp == nil {
		return
	}
	c.titles++
	for term := range fp.weights {
		c.seenIn[term]++
	}
}

// IDF returns log((N+1)/(1+df)) per term. A term present in every title
// weighs zero; rarer terms weigh more.
func (c *Corpus) IDF() map[string]float64 {
	if c == nil || c.titles == 0 {
		return nil
	}
	total := float64(c.titles)
	idf := make(map[string]float64, len(c.seenIn))
	for term, df := range c.seenIn {
		idf[term] = math.Log((total + 1) / (1 + float64(df)))
	}
	return idf
}
