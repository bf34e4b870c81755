package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/content"
	"clipforge/internal/logging"
	"clipforge/internal/providers/mock"
	"clipforge/internal/queue"
)

type fakeCatalog struct {
	titles []string
	counts map[string]int
}

func (f *fakeCatalog) RecentlyPublishedTitles(context.Context, int) ([]string, error) {
	return f.titles, nil
}

func (f *fakeCatalog) CategoryCounts(context.Context) (map[string]int, error) {
	return f.counts, nil
}

type fakeSearcher struct {
	perQuery []content.VideoCandidate
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, query content.SearchQuery, _ int) ([]content.VideoCandidate, error) {
	f.calls++
	out := make([]content.VideoCandidate, len(f.perQuery))
	copy(out, f.perQuery)
	return out, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Pipeline.TargetLanguages = []string{"en"}
	cfg.Pipeline.Categories = []string{"tech", "science"}
	cfg.Pipeline.QueriesPerLanguage = 2
	cfg.Pipeline.ChunkSize = 10
	return &cfg
}

func TestCollectContextFlagsUnderrepresentedCategories(t *testing.T) {
	cfg := testConfig(t)
	cat := &fakeCatalog{
		titles: []string{"Understanding goroutines", "Understanding channels"},
		counts: map[string]int{"tech": 10, "science": 1},
	}
	sc, err := CollectContext(context.Background(), cfg.Pipeline, cat)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.UnderrepresentedCategories) != 1 || sc.UnderrepresentedCategories[0] != "science" {
		t.Fatalf("underrepresented = %v", sc.UnderrepresentedCategories)
	}
	if len(sc.PopularKeywords) == 0 || sc.PopularKeywords[0] != "understanding" {
		t.Fatalf("keywords = %v", sc.PopularKeywords)
	}
	if sc.SeasonalHint == "" {
		t.Fatal("seasonal hint empty")
	}
}

func TestCollectContextEmptyCatalogTargetsEverything(t *testing.T) {
	cfg := testConfig(t)
	sc, err := CollectContext(context.Background(), cfg.Pipeline, &fakeCatalog{counts: map[string]int{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.UnderrepresentedCategories) != 2 {
		t.Fatalf("underrepresented = %v", sc.UnderrepresentedCategories)
	}
}

func TestRankEvaluationsDropsSkipAndOrdersBestFirst(t *testing.T) {
	evaluated := []content.EvaluatedVideo{
		{Candidate: content.VideoCandidate{SourceID: "maybe"}, Recommendation: content.RecommendationMaybe, PredictedQuality: 90},
		{Candidate: content.VideoCandidate{SourceID: "skip"}, Recommendation: content.RecommendationSkip},
		{Candidate: content.VideoCandidate{SourceID: "rec-low"}, Recommendation: content.RecommendationRecommended, PredictedQuality: 40},
		{Candidate: content.VideoCandidate{SourceID: "highly"}, Recommendation: content.RecommendationHighly, PredictedQuality: 70},
		{Candidate: content.VideoCandidate{SourceID: "rec-high"}, Recommendation: content.RecommendationRecommended, PredictedQuality: 80},
	}
	ranked := rankEvaluations(evaluated)
	var order []string
	for _, eval := range ranked {
		order = append(order, eval.Candidate.SourceID)
	}
	want := []string{"highly", "rec-high", "rec-low", "maybe"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestRunEnqueuesEvaluatedCandidatesOnce(t *testing.T) {
	cfg := testConfig(t)
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	searcher := &fakeSearcher{perQuery: []content.VideoCandidate{
		{SourceID: "vid-1", Title: "Intro to testing"},
		{SourceID: "vid-2", Title: "Intro to fuzzing"},
	}}
	svc := NewService(cfg, store, &fakeCatalog{counts: map[string]int{}},
		mock.NewLanguageModel(), searcher, logging.NewNop())

	enqueued, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if enqueued != 2 {
		t.Fatalf("enqueued = %d, want 2", enqueued)
	}
	if searcher.calls == 0 {
		t.Fatal("searcher never invoked")
	}

	job, err := store.FindBySourceID(context.Background(), "vid-1")
	if err != nil || job == nil {
		t.Fatalf("job missing: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("status = %s", job.Status)
	}
	if job.EvaluationJSON == "" {
		t.Fatal("evaluation not stored on job")
	}
	if job.Language != "en" {
		t.Fatalf("language = %q", job.Language)
	}

	// Second sweep must not duplicate jobs.
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d after rerun, want 2", len(jobs))
	}
}

func TestFetcherSearcherParsesLineDelimitedJSON(t *testing.T) {
	searcher := NewFetcherSearcher(config.Media{FetcherBinary: "yt-dlp-test"})
	var gotArgs []string
	searcher.WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		lines := []string{
			`{"id":"abc","title":"A","uploader":"Chan","view_count":10}`,
			`not json`,
			`{"id":"def","title":"B","channel":"Direct","view_count":20}`,
		}
		return []byte(strings.Join(lines, "\n")), nil
	})

	candidates, err := searcher.Search(context.Background(),
		content.SearchQuery{Query: "go concurrency", Language: "en"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	if candidates[0].Channel != "Chan" || candidates[1].Channel != "Direct" {
		t.Fatalf("channel fallback broken: %+v", candidates)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "ytsearch5:go concurrency") || !strings.Contains(joined, "--flat-playlist") {
		t.Fatalf("unexpected args %q", joined)
	}
}

func TestSeasonalHintCoversTheYear(t *testing.T) {
	cases := map[time.Month]string{
		time.January: "winter",
		time.April:   "spring",
		time.July:    "summer",
		time.October: "autumn",
	}
	for month, want := range cases {
		at := time.Date(2026, month, 10, 0, 0, 0, 0, time.UTC)
		if got := seasonalHint(at); got != want {
			t.Errorf("seasonalHint(%s) = %q, want %q", month, got, want)
		}
	}
}

func TestCrawlerPrepareRejectsMissingSource(t *testing.T) {
	cfg := testConfig(t)
	crawler := NewCrawler(cfg, nil, logging.NewNop())
	err := crawler.Prepare(context.Background(), &queue.Job{ID: 1})
	if err == nil {
		t.Fatal("expected error for missing source url")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("job %d", 1)) {
		t.Fatalf("error lacks job context: %v", err)
	}
}
