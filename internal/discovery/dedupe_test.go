package discovery

import (
	"testing"

	"clipforge/internal/content"
)

func TestFilterNearDuplicatesDropsRewordings(t *testing.T) {
	recent := []string{
		"Sourdough Bread Baking for Beginners",
		"Learn Guitar Chords in Ten Minutes",
	}
	candidates := []content.VideoCandidate{
		{SourceID: "dup", Title: "Baking Sourdough Bread for Beginners"},
		{SourceID: "fresh", Title: "Intro to Woodworking Joints"},
	}

	kept := filterNearDuplicates(candidates, recent)
	if len(kept) != 1 {
		t.Fatalf("expected 1 kept candidate, got %d", len(kept))
	}
	if kept[0].SourceID != "fresh" {
		t.Fatalf("expected fresh candidate to survive, got %s", kept[0].SourceID)
	}
}

func TestFilterNearDuplicatesNoRecentTitles(t *testing.T) {
	candidates := []content.VideoCandidate{{SourceID: "a", Title: "Anything"}}
	kept := filterNearDuplicates(candidates, nil)
	if len(kept) != 1 {
		t.Fatalf("expected passthrough, got %d", len(kept))
	}
}

func TestFilterNearDuplicatesKeepsSameTopicDifferentAngle(t *testing.T) {
	recent := []string{"Sourdough Bread Baking for Beginners"}
	candidates := []content.VideoCandidate{
		{SourceID: "angle", Title: "Fixing Dense Sourdough: Hydration Mistakes"},
	}
	kept := filterNearDuplicates(candidates, recent)
	if len(kept) != 1 {
		t.Fatalf("expected same-topic candidate kept, got %d", len(kept))
	}
}
