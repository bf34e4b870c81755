package textutil

import "testing"

func TestRewordedTitleScoresAsDuplicate(t *testing.T) {
	published := NewFingerprint("Sourdough Bread Baking for Beginners")
	reworded := NewFingerprint("Baking Sourdough Bread for Beginners")

	if sim := CosineSimilarity(published, reworded); sim < 0.999 {
		t.Fatalf("reworded title similarity = %v, want ~1.0", sim)
	}
}

func TestUnrelatedTitlesDoNotMatch(t *testing.T) {
	a := NewFingerprint("Guitar Chord Basics")
	b := NewFingerprint("Kubernetes Networking Deep Dive")

	if sim := CosineSimilarity(a, b); sim != 0 {
		t.Fatalf("unrelated title similarity = %v, want 0", sim)
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a := NewFingerprint("Watercolor Landscape Painting Basics")
	b := NewFingerprint("Landscape Painting with Watercolors")

	if ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a); ab != ba {
		t.Fatalf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestBareTitlesYieldNoFingerprint(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Fatal("empty title should have no fingerprint")
	}
	if fp := NewFingerprint("a of to"); fp != nil {
		t.Fatal("title of short stopwords should have no fingerprint")
	}
	if sim := CosineSimilarity(nil, NewFingerprint("Intro to Baking")); sim != 0 {
		t.Fatalf("nil fingerprint similarity = %v, want 0", sim)
	}
}

func publishedTutorialIDF() map[string]float64 {
	corpus := NewCorpus()
	for _, title := range []string{
		"Guitar Tutorial for Beginners",
		"Piano Tutorial for Beginners",
		"Baking Tutorial for Beginners",
	} {
		corpus.Add(NewFingerprint(title))
	}
	return corpus.IDF()
}

func TestIDFStripsSharedFillerTerms(t *testing.T) {
	idf := publishedTutorialIDF()
	published := NewFingerprint("Guitar Tutorial for Beginners")
	candidate := NewFingerprint("Violin Tutorial for Beginners")

	raw := CosineSimilarity(published, candidate)
	if raw < 0.7 {
		t.Fatalf("raw filler overlap = %v, want >= 0.7", raw)
	}
	weighted := CosineSimilarity(published.WithIDF(idf), candidate.WithIDF(idf))
	if weighted != 0 {
		t.Fatalf("weighted filler overlap = %v, want 0 (only 'tutorial for beginners' is shared)", weighted)
	}
}

func TestIDFKeepsTopicOverlap(t *testing.T) {
	idf := publishedTutorialIDF()
	published := NewFingerprint("Guitar Tutorial for Beginners").WithIDF(idf)
	repost := NewFingerprint("Beginners Guitar Tutorial").WithIDF(idf)

	if sim := CosineSimilarity(published, repost); sim < 0.999 {
		t.Fatalf("topic-term similarity = %v, want ~1.0", sim)
	}
}

func TestUnknownTermsKeepRawWeight(t *testing.T) {
	idf := publishedTutorialIDF()
	fresh := NewFingerprint("Violin Vibrato Exercises")
	if weighted := fresh.WithIDF(idf); weighted == nil {
		t.Fatal("terms the corpus never saw must survive reweighting")
	} else if sim := CosineSimilarity(weighted, fresh); sim < 0.999 {
		t.Fatalf("unknown-term similarity = %v, want ~1.0", sim)
	}
}
