// Package discovery finds new source videos: it collects catalog context,
// asks the language model for balanced search queries, evaluates the raw
// results, and enqueues the promising ones as pending jobs.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"clipforge/internal/config"
	"clipforge/internal/content"
	langpkg "clipforge/internal/language"
	"clipforge/internal/logging"
	"clipforge/internal/providers"
	"clipforge/internal/queue"
)

const searchResultsPerQuery = 10

// Service runs one discovery sweep end to end.
type Service struct {
	cfg      *config.Config
	store    *queue.Store
	catalog  CatalogReader
	model    providers.LanguageModel
	searcher Searcher
	logger   *slog.Logger
}

// NewService wires a discovery sweep from its collaborators.
func NewService(cfg *config.Config, store *queue.Store, catalog CatalogReader, model providers.LanguageModel, searcher Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, store: store, catalog: catalog, model: model, searcher: searcher, logger: logger}
}

// Run executes one sweep and returns the number of jobs enqueued. Candidates
// the model marks SKIP are dropped; the rest enter the queue best-first, up
// to one chunk per sweep.
func (s *Service) Run(ctx context.Context) (int, error) {
	log := logging.WithContext(ctx, s.logger)

	sc, err := CollectContext(ctx, s.cfg.Pipeline, s.catalog)
	if err != nil {
		return 0, fmt.Errorf("collect search context: %w", err)
	}

	queries, err := s.model.GenerateSearchQueries(ctx, sc)
	if err != nil {
		return 0, fmt.Errorf("generate search queries: %w", err)
	}
	if len(queries) == 0 {
		log.Info("discovery produced no queries")
		return 0, nil
	}
	sort.SliceStable(queries, func(i, j int) bool { return queries[i].Priority > queries[j].Priority })

	candidates, languageBySource := s.collectCandidates(ctx, queries)
	if len(candidates) == 0 {
		log.Info("discovery found no new candidates", slog.Int("queries", len(queries)))
		return 0, nil
	}

	fresh := filterNearDuplicates(candidates, sc.RecentlyPublishedTitles)
	if dropped := len(candidates) - len(fresh); dropped > 0 {
		log.Info("near-duplicate candidates dropped", slog.Int("dropped", dropped))
	}
	if len(fresh) == 0 {
		log.Info("all candidates were near-duplicates", slog.Int("candidates", len(candidates)))
		return 0, nil
	}

	evaluated, err := s.model.EvaluateVideos(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("evaluate candidates: %w", err)
	}
	ranked := rankEvaluations(evaluated)

	limit := s.cfg.Pipeline.ChunkSize
	if limit <= 0 {
		limit = 10
	}
	enqueued := 0
	for _, eval := range ranked {
		if enqueued >= limit {
			break
		}
		if err := s.enqueue(ctx, eval, languageBySource[eval.Candidate.SourceID]); err != nil {
			log.Warn("enqueue candidate failed",
				slog.String("source_id", eval.Candidate.SourceID), logging.Error(err))
			continue
		}
		enqueued++
	}
	log.Info("discovery sweep complete",
		slog.Int("queries", len(queries)),
		slog.Int("candidates", len(candidates)),
		slog.Int("enqueued", enqueued))
	return enqueued, nil
}

// collectCandidates runs every query, deduplicating by source id. Individual
// query failures are logged and skipped so one bad search cannot sink the
// sweep.
func (s *Service) collectCandidates(ctx context.Context, queries []content.SearchQuery) ([]content.VideoCandidate, map[string]string) {
	log := logging.WithContext(ctx, s.logger)
	seen := make(map[string]struct{})
	language := make(map[string]string)
	var candidates []content.VideoCandidate

	for _, query := range queries {
		if ctx.Err() != nil {
			break
		}
		results, err := s.searcher.Search(ctx, query, searchResultsPerQuery)
		if err != nil {
			log.Warn("search query failed", slog.String("query", query.Query), logging.Error(err))
			continue
		}
		for _, candidate := range results {
			if _, dup := seen[candidate.SourceID]; dup {
				continue
			}
			seen[candidate.SourceID] = struct{}{}
			language[candidate.SourceID] = query.Language
			candidates = append(candidates, candidate)
		}
	}
	return candidates, language
}

func recommendationRank(rec content.Recommendation) int {
	switch rec {
	case content.RecommendationHighly:
		return 0
	case content.RecommendationRecommended:
		return 1
	case content.RecommendationMaybe:
		return 2
	default:
		return 3
	}
}

// rankEvaluations drops SKIP verdicts and orders the rest best-first.
func rankEvaluations(evaluated []content.EvaluatedVideo) []content.EvaluatedVideo {
	kept := make([]content.EvaluatedVideo, 0, len(evaluated))
	for _, eval := range evaluated {
		if eval.Recommendation == content.RecommendationSkip {
			continue
		}
		kept = append(kept, eval)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := recommendationRank(kept[i].Recommendation), recommendationRank(kept[j].Recommendation)
		if ri != rj {
			return ri < rj
		}
		return kept[i].PredictedQuality > kept[j].PredictedQuality
	})
	return kept
}

func (s *Service) enqueue(ctx context.Context, eval content.EvaluatedVideo, language string) error {
	language = langpkg.Normalize(language)
	if language == "" && len(s.cfg.Pipeline.TargetLanguages) > 0 {
		language = s.cfg.Pipeline.TargetLanguages[0]
	}
	job, err := s.store.NewJob(ctx, SourceURL(eval.Candidate), eval.Candidate.SourceID, eval.Candidate.Title, language)
	if err != nil {
		return err
	}
	// An existing job keeps its original evaluation.
	if job.EvaluationJSON != "" {
		return nil
	}
	encoded, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	job.EvaluationJSON = string(encoded)
	return s.store.Update(ctx, job)
}
