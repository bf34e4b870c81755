package discovery

import (
	"clipforge/internal/content"
	"clipforge/internal/textutil"
)

// Candidates whose title vector lands this close to a recently published
// title are treated as rewordings of content the catalog already has.
const duplicateTitleThreshold = 0.8

// filterNearDuplicates drops candidates that look like retitled copies of
// recently published content. Recent titles form the IDF corpus so shared
// filler words ("tutorial", "beginner") carry less weight than topic terms.
func filterNearDuplicates(candidates []content.VideoCandidate, recentTitles []string) []content.VideoCandidate {
	if len(candidates) == 0 || len(recentTitles) == 0 {
		return candidates
	}

	corpus := textutil.NewCorpus()
	raw := make([]*textutil.Fingerprint, 0, len(recentTitles))
	for _, title := range recentTitles {
		fp := textutil.NewFingerprint(title)
		if fp == nil {
			continue
		}
		corpus.Add(fp)
		raw = append(raw, fp)
	}
	if len(raw) == 0 {
		return candidates
	}
	idf := corpus.IDF()

	recent := make([]*textutil.Fingerprint, 0, len(raw))
	for _, fp := range raw {
		if weighted := fp.WithIDF(idf); weighted != nil {
			recent = append(recent, weighted)
		}
	}

	kept := make([]content.VideoCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		fp := textutil.NewFingerprint(candidate.Title).WithIDF(idf)
		duplicate := false
		for _, published := range recent {
			if textutil.CosineSimilarity(fp, published) >= duplicateTitleThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}
