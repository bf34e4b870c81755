package discovery

import (
	"context"
	"sort"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/content"
)

// CatalogReader is the slice of the catalog store discovery consults when
// building search context.
type CatalogReader interface {
	RecentlyPublishedTitles(ctx context.Context, limit int) ([]string, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

const recentTitleWindow = 20

// CollectContext aggregates taxonomy and catalog signals into the search
// context handed to the query generator.
func CollectContext(ctx context.Context, pipeline config.Pipeline, catalog CatalogReader) (content.SearchContext, error) {
	sc := content.SearchContext{
		Categories:         pipeline.Categories,
		TargetLanguages:    pipeline.TargetLanguages,
		QueriesPerLanguage: pipeline.QueriesPerLanguage,
		SeasonalHint:       seasonalHint(time.Now()),
	}

	titles, err := catalog.RecentlyPublishedTitles(ctx, recentTitleWindow)
	if err != nil {
		return content.SearchContext{}, err
	}
	sc.RecentlyPublishedTitles = titles
	sc.PopularKeywords = keywordsFromTitles(titles)

	counts, err := catalog.CategoryCounts(ctx)
	if err != nil {
		return content.SearchContext{}, err
	}
	sc.UnderrepresentedCategories = underrepresented(pipeline.Categories, counts)
	return sc, nil
}

// underrepresented returns configured categories published less than half as
// often as the busiest one. An empty catalog makes every category a target.
func underrepresented(categories []string, counts map[string]int) []string {
	max := 0
	for _, count := range counts {
		if count > max {
			max = count
		}
	}
	var under []string
	for _, category := range categories {
		if counts[category]*2 < max || max == 0 {
			under = append(under, category)
		}
	}
	return under
}

var titleStopwords = map[string]struct{}{
	"with": {}, "this": {}, "that": {}, "from": {}, "your": {},
	"what": {}, "when": {}, "tutorial": {}, "guide": {}, "minutes": {},
}

// keywordsFromTitles extracts the most frequent meaningful words from
// recently published titles, most frequent first.
func keywordsFromTitles(titles []string) []string {
	freq := make(map[string]int)
	for _, title := range titles {
		for _, word := range strings.Fields(strings.ToLower(title)) {
			word = strings.Trim(word, ".,:;!?\"'()[]")
			if len(word) < 4 {
				continue
			}
			if _, stop := titleStopwords[word]; stop {
				continue
			}
			freq[word]++
		}
	}
	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 10 {
		words = words[:10]
	}
	return words
}

func seasonalHint(now time.Time) string {
	switch now.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}
