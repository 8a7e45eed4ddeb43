package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/metrics"
	"knowledge-assistant/internal/models"
)

const (
	TierNoResults        = "no_results"
	TierDirectExtraction = "direct_extraction"
	TierQAMatch          = "qa_match"
	TierAISynthesis      = "ai_synthesis"
	TierAIDegraded       = "ai_degraded"
	TierBestMatch        = "best_match"

	degradedListSize   = 3
	defaultTaskTimeout = 10 * time.Second
)

type Searcher interface {
	Search(ctx context.Context, query string) []models.SearchResult
}

// Generator is the AI collaborator used for synthesis; any error degrades the answer
type Generator interface {
	Generate(ctx context.Context, question string, evidence []models.SearchResult, history []models.ConversationTurn) (*models.GenerationResult, error)
}

// Recorder receives the fire-and-forget writes made after an answer
type Recorder interface {
	IncrementUsage(ctx context.Context, qaID string) error
	RecordQuery(ctx context.Context, a models.QueryAnalytics) error
}

type Options struct {
	QAThreshold float64
	AIThreshold float64
	MaxEvidence int
	TaskTimeout time.Duration
}

func OptionsFromConfig(cfg *config.RAGConfig) Options {
	return Options{
		QAThreshold: cfg.QAThreshold,
		AIThreshold: cfg.AIThreshold,
		MaxEvidence: cfg.MaxEvidence,
		TaskTimeout: defaultTaskTimeout,
	}
}

// RAG turns ranked search results into one answer
type RAG struct {
	searcher  Searcher
	generator Generator
	recorder  Recorder
	opts      Options
	log       zerolog.Logger
	tasks     sync.WaitGroup
}

func NewRAG(searcher Searcher, generator Generator, recorder Recorder, opts Options, logger zerolog.Logger) *RAG {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	return &RAG{
		searcher:  searcher,
		generator: generator,
		recorder:  recorder,
		opts:      opts,
		log:       logger.With().Str("component", "rag").Logger(),
	}
}

// GenerateAnswer always returns a displayable answer. Failures of the search or the AI
// collaborator degrade to the next tier instead of surfacing to the caller.
func (r *RAG) GenerateAnswer(ctx context.Context, question string, history []models.ConversationTurn) *models.AnswerGenerationResult {
	start := time.Now()
	results := r.searcher.Search(ctx, question)

	res, tier := r.Answer(ctx, question, results, history)

	r.log.Debug().
		Str("tier", tier).
		Str("source_type", string(res.SourceType)).
		Int("results", len(results)).
		Dur("took", time.Since(start)).
		Msg("answer generated")
	metrics.AnswersTotal.WithLabelValues(string(res.SourceType), tier).Inc()
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())

	analytics := models.QueryAnalytics{
		Query:       question,
		SourceType:  res.SourceType,
		ResultCount: len(results),
	}
	if len(results) > 0 {
		analytics.TopScore = best(results).RelevanceScore
	}
	r.background(ctx, "record_query", func(ctx context.Context) error {
		return r.recorder.RecordQuery(ctx, analytics)
	})
	return res
}

// Answer applies the tiers to already ranked results and reports which tier fired
func (r *RAG) Answer(ctx context.Context, question string, results []models.SearchResult, history []models.ConversationTurn) (*models.AnswerGenerationResult, string) {
	if len(results) == 0 {
		return &models.AnswerGenerationResult{
			Answer:        models.NoAnswerMessage,
			SourceType:    models.SourceTypeAIGenerated,
			SearchResults: []models.SearchResult{},
		}, TierNoResults
	}

	evidence := r.evidence(results)
	docs := ofType(results, models.ResultTypeDocument)

	if len(docs) > 0 {
		if hit, ok := extract(question, docs); ok {
			r.log.Debug().Str("rule", hit.rule).Str("source", hit.source.Source).Msg("direct extraction matched")
			return &models.AnswerGenerationResult{
				Answer:        hit.answer,
				Source:        hit.source.Source,
				SourceType:    models.SourceTypeDocument,
				SourceID:      hit.source.ID,
				SearchResults: evidence,
			}, TierDirectExtraction
		}
	}

	if qa := ofType(results, models.ResultTypeQAPair); len(qa) > 0 {
		top := best(qa)
		if top.RelevanceScore > r.opts.QAThreshold {
			r.background(ctx, "increment_usage", func(ctx context.Context) error {
				return r.recorder.IncrementUsage(ctx, top.ID)
			})
			return &models.AnswerGenerationResult{
				Answer:        top.Answer,
				Source:        top.Source,
				SourceType:    models.SourceTypeQAPair,
				SourceID:      top.ID,
				SearchResults: evidence,
			}, TierQAMatch
		}
	}

	top := best(results)
	if top.RelevanceScore > r.opts.AIThreshold {
		gen, err := r.generate(ctx, question, evidence, history)
		if err == nil {
			return &models.AnswerGenerationResult{
				Answer:        gen.Answer,
				Source:        strings.Join(gen.Sources, ", "),
				SourceType:    models.SourceTypeAIGenerated,
				SearchResults: evidence,
				AIGenerated:   true,
			}, TierAISynthesis
		}

		r.log.Warn().Err(err).Msg("ai generation failed, degrading")
		metrics.AIGenerationFailures.Inc()
		if len(docs) > 0 {
			doc := best(docs)
			return &models.AnswerGenerationResult{
				Answer:        fmt.Sprintf("Based on %s: %s", doc.Source, doc.Answer),
				Source:        doc.Source,
				SourceType:    models.SourceTypeDocument,
				SourceID:      doc.ID,
				SearchResults: evidence,
			}, TierAIDegraded
		}
		return &models.AnswerGenerationResult{
			Answer:        numberedList(results),
			SourceType:    models.SourceTypeAIGenerated,
			SearchResults: evidence,
		}, TierAIDegraded
	}

	return &models.AnswerGenerationResult{
		Answer:        top.Answer,
		Source:        top.Source,
		SourceType:    sourceTypeOf(top.Type),
		SourceID:      top.ID,
		SearchResults: evidence,
	}, TierBestMatch
}

func (r *RAG) generate(ctx context.Context, question string, evidence []models.SearchResult, history []models.ConversationTurn) (*models.GenerationResult, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	gen, err := r.generator.Generate(ctx, question, evidence, history)
	if err != nil {
		return nil, err
	}
	if gen == nil || strings.TrimSpace(gen.Answer) == "" {
		return nil, fmt.Errorf("generator returned an empty answer")
	}
	return gen, nil
}

// background runs a side effect detached from the request; failures are logged and counted
func (r *RAG) background(ctx context.Context, task string, fn func(context.Context) error) {
	if r.recorder == nil {
		return
	}
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.TaskTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.log.Error().Err(err).Str("task", task).Msg("background task failed")
			metrics.BackgroundTaskFailures.WithLabelValues(task).Inc()
		}
	}()
}

// Wait blocks until every background task has finished
func (r *RAG) Wait() {
	r.tasks.Wait()
}

func (r *RAG) evidence(results []models.SearchResult) []models.SearchResult {
	n := min(len(results), r.opts.MaxEvidence)
	if r.opts.MaxEvidence <= 0 {
		n = len(results)
	}
	out := make([]models.SearchResult, n)
	copy(out, results[:n])
	return out
}

func ofType(results []models.SearchResult, t models.ResultType) []models.SearchResult {
	var out []models.SearchResult
	for _, r := range results {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// best returns the highest scoring result, the earliest one on ties
func best(results []models.SearchResult) models.SearchResult {
	top := results[0]
	for _, r := range results[1:] {
		if r.RelevanceScore > top.RelevanceScore {
			top = r
		}
	}
	return top
}

func numberedList(results []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("Here is what I found in the knowledge base:\n")
	for i, r := range results[:min(len(results), degradedListSize)] {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, strings.TrimSpace(r.Answer), r.Source)
	}
	return b.String()
}

func sourceTypeOf(t models.ResultType) models.SourceType {
	if t == models.ResultTypeQAPair {
		return models.SourceTypeQAPair
	}
	return models.SourceTypeDocument
}
