// Package search merges the Q&A and document corpora into one ranked result list.
package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/metrics"
	"knowledge-assistant/internal/models"
	"knowledge-assistant/internal/normalizer"
	"knowledge-assistant/internal/scorer"
)

const (
	PathEnhanced = "enhanced"
	PathFallback = "fallback"
	PathBasic    = "basic"

	// answers at or below this many characters are noise
	minAnswerLength = 10
	fanOutLimit     = 8
)

// Corpus is the subset of the corpus store the aggregator reads from
type Corpus interface {
	EnhancedSearch(ctx context.Context, query, searchContext string, limit int) ([]models.EnhancedRow, error)
	SearchQAPairs(ctx context.Context, term string, limit int) ([]models.QAPair, error)
	SearchChunks(ctx context.Context, term string, limit int) ([]models.ChunkHit, error)
}

// Recaller returns semantic neighbours of a query, used as extra fallback candidates
type Recaller interface {
	Recall(ctx context.Context, query string, n int) ([]models.RecallHit, error)
}

type Options struct {
	MinScore      float64
	EnhancedLimit int
	QueryLimit    int
	RecallResults int
}

func OptionsFromConfig(cfg *config.RAGConfig) Options {
	return Options{
		MinScore:      cfg.MinScore,
		EnhancedLimit: cfg.EnhancedLimit,
		QueryLimit:    cfg.QueryLimit,
		RecallResults: cfg.RecallResults,
	}
}

type Aggregator struct {
	corpus     Corpus
	recall     Recaller
	normalizer *normalizer.Normalizer
	scorer     *scorer.Scorer
	opts       Options
	log        zerolog.Logger
}

func New(corpus Corpus, norm *normalizer.Normalizer, sc *scorer.Scorer, opts Options, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		corpus:     corpus,
		normalizer: norm,
		scorer:     sc,
		opts:       opts,
		log:        logger.With().Str("component", "search").Logger(),
	}
}

// WithRecall enables semantic recall candidates on the fallback path
func (a *Aggregator) WithRecall(r Recaller) *Aggregator {
	a.recall = r
	return a
}

// Search tries the server side ranking function with the normalized query and falls back
// to parallel substring searches when it fails. It never returns an error.
func (a *Aggregator) Search(ctx context.Context, query string) []models.SearchResult {
	nq := a.normalizer.Normalize(query)

	results, err := a.enhanced(ctx, nq)
	if err == nil {
		a.log.Debug().Str("path", PathEnhanced).Int("results", len(results)).Msg("search complete")
		metrics.SearchPathTotal.WithLabelValues(PathEnhanced).Inc()
		return results
	}

	a.log.Warn().Err(err).Msg("enhanced search failed, using fallback")
	results = a.fallback(ctx, query, nq)
	a.log.Debug().Str("path", PathFallback).Int("results", len(results)).Msg("search complete")
	metrics.SearchPathTotal.WithLabelValues(PathFallback).Inc()
	return results
}

// BasicSearch skips the ranking function and runs the substring fallback directly
func (a *Aggregator) BasicSearch(ctx context.Context, query string) []models.SearchResult {
	results := a.fallback(ctx, query, a.normalizer.Normalize(query))
	a.log.Debug().Str("path", PathBasic).Int("results", len(results)).Msg("search complete")
	metrics.SearchPathTotal.WithLabelValues(PathBasic).Inc()
	return results
}

func (a *Aggregator) enhanced(ctx context.Context, nq models.NormalizedQuestion) ([]models.SearchResult, error) {
	rows, err := a.corpus.EnhancedSearch(ctx, nq.Normalized, string(nq.Intent), a.opts.EnhancedLimit)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, row := range rows {
		r, err := row.ToSearchResult()
		if err != nil {
			a.log.Warn().Err(err).Msg("skipping enhanced search row")
			continue
		}
		results = append(results, r)
	}
	if len(rows) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("%w: all %d rows rejected", models.ErrInvalidRow, len(rows))
	}
	return a.rank(results), nil
}

func (a *Aggregator) fallback(ctx context.Context, query string, nq models.NormalizedQuestion) []models.SearchResult {
	variants := Variants(query)
	if nq.Normalized != "" && !slices.Contains(variants, nq.Normalized) {
		variants = append(variants, nq.Normalized)
	}
	if len(variants) == 0 {
		return nil
	}

	queries := []string{query}
	if nq.Normalized != "" && nq.Normalized != strings.ToLower(strings.TrimSpace(query)) {
		queries = append(queries, nq.Normalized)
	}

	// results are collected per variant and merged in variant order so ranking ties are stable
	qaHits := make([][]models.QAPair, len(variants))
	chunkHits := make([][]models.ChunkHit, len(variants))
	var recallHits []models.RecallHit

	var g errgroup.Group
	g.SetLimit(fanOutLimit)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			pairs, err := a.corpus.SearchQAPairs(ctx, v, a.opts.QueryLimit)
			if err != nil {
				return fmt.Errorf("qa search %q: %w", v, err)
			}
			qaHits[i] = pairs
			return nil
		})
		g.Go(func() error {
			hits, err := a.corpus.SearchChunks(ctx, v, a.opts.QueryLimit)
			if err != nil {
				return fmt.Errorf("chunk search %q: %w", v, err)
			}
			chunkHits[i] = hits
			return nil
		})
	}
	if a.recall != nil && a.opts.RecallResults > 0 {
		g.Go(func() error {
			hits, err := a.recall.Recall(ctx, query, a.opts.RecallResults)
			if err != nil {
				return fmt.Errorf("semantic recall: %w", err)
			}
			recallHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.log.Warn().Err(err).Msg("some fallback searches failed")
	}

	seen := make(map[string]struct{})
	var merged []models.SearchResult
	add := func(key string, r models.SearchResult) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, r)
	}
	for i := range variants {
		for _, p := range qaHits[i] {
			add("qa:"+p.ID, a.scoreQA(queries, p.ID, p.Question, p.Answer, p.Category))
		}
		for _, h := range chunkHits[i] {
			add("chunk:"+h.ID, a.scoreChunk(queries, h.DocumentID, h.ID, h.DocumentName, h.Content))
		}
	}
	for _, h := range recallHits {
		switch h.Type {
		case models.ResultTypeQAPair:
			add("qa:"+h.ID, a.scoreQA(queries, h.ID, h.Title, h.Content, h.Category))
		case models.ResultTypeDocument:
			add("chunk:"+h.ChunkID, a.scoreChunk(queries, h.ID, h.ChunkID, h.Title, h.Content))
		}
	}
	return a.rank(merged)
}

func (a *Aggregator) scoreQA(queries []string, id, question, answer, category string) models.SearchResult {
	text := question + " " + answer
	var best float64
	for _, q := range queries {
		best = max(best, a.scorer.Basic(q, text))
	}
	return models.SearchResult{
		Type:           models.ResultTypeQAPair,
		ID:             id,
		Question:       question,
		Answer:         answer,
		Source:         models.QASource(category),
		Category:       category,
		RelevanceScore: best,
	}
}

func (a *Aggregator) scoreChunk(queries []string, documentID, chunkID, documentName, content string) models.SearchResult {
	var best float64
	for _, q := range queries {
		best = max(best, a.scorer.Enhanced(q, content))
	}
	return models.SearchResult{
		Type:           models.ResultTypeDocument,
		ID:             documentID,
		ChunkID:        chunkID,
		Answer:         content,
		Source:         models.DocumentSource(documentName),
		RelevanceScore: best,
	}
}

// rank drops noise and sorts by descending relevance, keeping input order for ties
func (a *Aggregator) rank(results []models.SearchResult) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.RelevanceScore <= a.opts.MinScore {
			continue
		}
		if len(strings.TrimSpace(r.Answer)) <= minAnswerLength {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(x, y models.SearchResult) int {
		return cmp.Compare(y.RelevanceScore, x.RelevanceScore)
	})
	return out
}
