package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/models"
	"knowledge-assistant/internal/normalizer"
	"knowledge-assistant/internal/scorer"
)

type fakeCorpus struct {
	mu          sync.Mutex
	rows        []models.EnhancedRow
	enhancedErr error
	searchErr   error
	qa          []models.QAPair
	chunks      []models.ChunkHit

	enhancedQuery   string
	enhancedContext string
	terms           []string
}

func (f *fakeCorpus) EnhancedSearch(_ context.Context, query, searchContext string, _ int) ([]models.EnhancedRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enhancedQuery, f.enhancedContext = query, searchContext
	return f.rows, f.enhancedErr
}

func (f *fakeCorpus) SearchQAPairs(_ context.Context, term string, limit int) ([]models.QAPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, term)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	t := strings.ToLower(term)
	var out []models.QAPair
	for _, p := range f.qa {
		if strings.Contains(strings.ToLower(p.Question), t) || strings.Contains(strings.ToLower(p.Answer), t) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCorpus) SearchChunks(_ context.Context, term string, _ int) ([]models.ChunkHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	t := strings.ToLower(term)
	var out []models.ChunkHit
	for _, c := range f.chunks {
		if strings.Contains(strings.ToLower(c.Content), t) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeRecaller struct {
	hits []models.RecallHit
	err  error
}

func (f *fakeRecaller) Recall(context.Context, string, int) ([]models.RecallHit, error) {
	return f.hits, f.err
}

func chunk(id, docID, docName, content string) models.ChunkHit {
	return models.ChunkHit{
		DocumentChunk: models.DocumentChunk{ID: id, DocumentID: docID, Content: content},
		DocumentName:  docName,
	}
}

func testCorpus() *fakeCorpus {
	return &fakeCorpus{
		qa: []models.QAPair{
			{ID: "q1", Question: "Support phone number?", Answer: "Call 555-123-4567", Category: "IT"},
			{ID: "q2", Question: "How do I book holiday?", Answer: "Use the HR portal to book leave.", Category: "HR"},
		},
		chunks: []models.ChunkHit{
			chunk("c1", "d1", "Install Guide.pdf", "If wiring is required, turn off power at the fusebox first."),
			chunk("c2", "d2", "IT Handbook.docx", "Support is available by phone on weekdays."),
		},
	}
}

func newAggregator(corpus Corpus, logger zerolog.Logger) *Aggregator {
	opts := Options{MinScore: 0.1, EnhancedLimit: 10, QueryLimit: 10, RecallResults: 5}
	return New(corpus, normalizer.New(zerolog.Nop()), scorer.New(0), opts, logger)
}

func TestSearch_EnhancedPath(t *testing.T) {
	corpus := &fakeCorpus{rows: []models.EnhancedRow{
		{ResultType: "document", ID: "d1", Title: "IT Handbook.docx", Content: "The help desk can be reached on extension 4000.", BaseScore: 0.4},
		{ResultType: "qa_pair", ID: "q1", Title: "Support phone number?", Content: "Call 555-123-4567", Category: "IT", BaseScore: 0.8, ContextBonus: 0.2},
		{ResultType: "document", ID: "d2", Title: "Short.txt", Content: "short", BaseScore: 0.9},
		{ResultType: "qa_pair", ID: "q3", Content: "This answer is barely relevant.", BaseScore: 0.05},
		{ResultType: "mystery", ID: "x1", Content: "unknown row type"},
	}}
	a := newAggregator(corpus, zerolog.Nop())

	results := a.Search(context.Background(), "What number should I call to reach support?")

	assert.Equal(t, "support phone number", corpus.enhancedQuery)
	assert.Equal(t, "support_phone", corpus.enhancedContext)
	require.Len(t, results, 2)
	assert.Equal(t, "q1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "Support phone number?", results[0].Question)
	assert.Equal(t, "Q&A - IT", results[0].Source)
	assert.Equal(t, "d1", results[1].ID)
	assert.Equal(t, "Document - IT Handbook.docx", results[1].Source)
	assert.Empty(t, corpus.terms, "fallback must not run when the ranking function succeeds")
}

func TestSearch_EmptyEnhancedResponseIsReturnedAsIs(t *testing.T) {
	corpus := testCorpus()
	a := newAggregator(corpus, zerolog.Nop())

	results := a.Search(context.Background(), "Support phone number?")
	assert.Empty(t, results)
	assert.Empty(t, corpus.terms)
}

func TestSearch_FallbackOnError(t *testing.T) {
	var buf bytes.Buffer
	corpus := testCorpus()
	corpus.enhancedErr = errors.New("rpc unavailable")
	a := newAggregator(corpus, zerolog.New(&buf).Level(zerolog.DebugLevel))

	results := a.Search(context.Background(), "What number should I call to reach support?")

	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].ChunkID)
	assert.Equal(t, "d2", results[0].ID)
	assert.Equal(t, models.ResultTypeDocument, results[0].Type)
	assert.InDelta(t, 1.5, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, "q1", results[1].ID)
	assert.InDelta(t, 1.0, results[1].RelevanceScore, 1e-9, "normalized query lifts the q&a score above the raw one")

	assert.Contains(t, corpus.terms, "phone")
	assert.Contains(t, corpus.terms, "support phone number")
	assert.Contains(t, buf.String(), `"path":"fallback"`)
}

func TestSearch_AllRowsInvalidTriggersFallback(t *testing.T) {
	corpus := testCorpus()
	corpus.rows = []models.EnhancedRow{{ResultType: "qa_pair", ID: ""}, {ResultType: "other", ID: "x"}}
	a := newAggregator(corpus, zerolog.Nop())

	results := a.Search(context.Background(), "Support phone number?")
	assert.NotEmpty(t, corpus.terms)
	require.NotEmpty(t, results)
	assert.Equal(t, "q1", results[len(results)-1].ID)
}

func TestSearch_FallbackDeduplicates(t *testing.T) {
	corpus := testCorpus()
	corpus.enhancedErr = errors.New("rpc unavailable")
	a := newAggregator(corpus, zerolog.Nop())

	results := a.Search(context.Background(), "support phone number call")
	seen := map[string]int{}
	for _, r := range results {
		seen[string(r.Type)+":"+r.ID+":"+r.ChunkID]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

func TestSearch_FallbackErrorsYieldEmptyResults(t *testing.T) {
	corpus := testCorpus()
	corpus.enhancedErr = errors.New("rpc unavailable")
	corpus.searchErr = errors.New("connection refused")
	a := newAggregator(corpus, zerolog.Nop())

	assert.Empty(t, a.Search(context.Background(), "Support phone number?"))
}

func TestBasicSearch_RecallCandidates(t *testing.T) {
	corpus := &fakeCorpus{}
	recall := &fakeRecaller{hits: []models.RecallHit{
		{Type: models.ResultTypeDocument, ID: "d1", ChunkID: "c1", Title: "Install Guide.pdf",
			Content: "If wiring is required, turn off power at the fusebox first.", Similarity: 0.8},
		{Type: models.ResultTypeQAPair, ID: "q9", Title: "Office hours?", Content: "We are open 9 to 5.", Similarity: 0.1},
	}}
	a := newAggregator(corpus, zerolog.Nop()).WithRecall(recall)

	results := a.BasicSearch(context.Background(), "wiring safety")
	require.Len(t, results, 1, "recall hits are rescored, so unrelated neighbours are filtered")
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "Document - Install Guide.pdf", results[0].Source)
	assert.InDelta(t, 0.3, results[0].RelevanceScore, 1e-9)
}

func TestBasicSearch_RecallErrorIsIgnored(t *testing.T) {
	corpus := testCorpus()
	a := newAggregator(corpus, zerolog.Nop()).WithRecall(&fakeRecaller{err: errors.New("embedder down")})

	results := a.BasicSearch(context.Background(), "fusebox")
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
}

func TestSearch_RankingInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	words := []string{"support", "phone", "number", "customer", "call", "equipment", "package",
		"standard", "wiring", "fusebox", "holiday", "policy", "deadline", "email", "install"}
	sentence := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = words[r.Intn(len(words))]
		}
		return strings.Join(parts, " ")
	}

	corpus := &fakeCorpus{enhancedErr: errors.New("down")}
	for i := 0; i < 30; i++ {
		corpus.qa = append(corpus.qa, models.QAPair{ID: fmt.Sprintf("q%d", i), Question: sentence(3), Answer: sentence(1 + r.Intn(6))})
		corpus.chunks = append(corpus.chunks, chunk(fmt.Sprintf("c%d", i), "d", "doc.txt", sentence(2+r.Intn(10))))
	}
	a := newAggregator(corpus, zerolog.Nop())

	for i := 0; i < 50; i++ {
		results := a.Search(context.Background(), sentence(1+r.Intn(4)))
		for j, res := range results {
			assert.Greater(t, res.RelevanceScore, 0.1)
			assert.Greater(t, len(strings.TrimSpace(res.Answer)), 10)
			if j > 0 {
				assert.GreaterOrEqual(t, results[j-1].RelevanceScore, res.RelevanceScore)
			}
		}
	}
}

func TestVariants(t *testing.T) {
	assert.Nil(t, Variants("  "))
	assert.Equal(t,
		[]string{"What equipment is in the standard package?", "equipment", "standard", "package"},
		Variants("What equipment is in the standard package?"))
	assert.Equal(t,
		[]string{"call customer", "call", "customer", "contact", "client"},
		Variants("call customer"))
}
