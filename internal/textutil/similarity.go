package textutil

// CosineSimilarity scores how much two title fingerprints overlap, 0 for
// disjoint through 1 for identical term distributions. Nil or zero-magnitude
// fingerprints never match anything.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.magnitude == 0 || b.magnitude == 0 {
		return 0
	}
	var dot float64
	for term, weight := range a.weights {
		if other, ok := b.weights[term]; ok {
			dot += weight * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.magnitude * b.magnitude)
}
