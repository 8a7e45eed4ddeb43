package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"knowledge-assistant/internal/helper"
	"knowledge-assistant/internal/models"
)

// Store is the corpus store: Q&A pairs, documents, chunks and analytics
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// escapeLike escapes LIKE wildcards so user text is matched literally
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func containsPattern(term string) string {
	return "%" + escapeLike(strings.TrimSpace(term)) + "%"
}

// SearchQAPairs returns active Q&A pairs whose question or answer contains term
func (s *Store) SearchQAPairs(ctx context.Context, term string, limit int) ([]models.QAPair, error) {
	pattern := containsPattern(term)
	var rows []QAPairRecord
	err := s.db.NewSelect().
		Model(&rows).
		Where("qa.is_active = TRUE").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("qa.question ILIKE ?", pattern).WhereOr("qa.answer ILIKE ?", pattern)
		}).
		OrderExpr("qa.usage_count DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search qa pairs: %w", err)
	}
	pairs := make([]models.QAPair, len(rows))
	for i, r := range rows {
		pairs[i] = r.toModel()
	}
	return pairs, nil
}

// SearchChunks returns chunks of processed documents containing term
func (s *Store) SearchChunks(ctx context.Context, term string, limit int) ([]models.ChunkHit, error) {
	pattern := containsPattern(term)
	var rows []ChunkRecord
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("dc.*").
		ColumnExpr("d.name AS document_name").
		Join("JOIN documents AS d ON d.id = dc.document_id").
		Where("d.processing_status = ?", string(models.StatusProcessed)).
		Where("dc.content ILIKE ?", pattern).
		OrderExpr("dc.chunk_index ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	hits := make([]models.ChunkHit, len(rows))
	for i, r := range rows {
		hits[i] = r.toHit()
	}
	return hits, nil
}

// EnhancedSearch calls the server side ranking function
func (s *Store) EnhancedSearch(ctx context.Context, query, searchContext string, limit int) ([]models.EnhancedRow, error) {
	var rows []models.EnhancedRow
	err := s.db.NewRaw(
		"SELECT result_type, id, title, content, source, category, base_score, context_bonus FROM enhanced_search(?, ?, ?)",
		query, searchContext, limit,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("enhanced search failed: %w", err)
	}
	return rows, nil
}

func (s *Store) IncrementUsage(ctx context.Context, qaID string) error {
	_, err := s.db.NewUpdate().
		Model((*QAPairRecord)(nil)).
		Set("usage_count = usage_count + 1").
		Where("id = ?", qaID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment usage for %s: %w", qaID, err)
	}
	return nil
}

func (s *Store) RecordQuery(ctx context.Context, a models.QueryAnalytics) error {
	rec := &AnalyticsRecord{
		ID:          helper.MustUUID(),
		Query:       a.Query,
		SourceType:  string(a.SourceType),
		ResultCount: a.ResultCount,
		TopScore:    a.TopScore,
	}
	if _, err := s.db.NewInsert().Model(rec).ExcludeColumn("created_at").Exec(ctx); err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, name string) (models.Document, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return models.Document{}, err
	}
	rec := &DocumentRecord{
		ID:               id,
		Name:             name,
		ProcessingStatus: string(models.StatusUploaded),
		CreatedAt:        time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return models.Document{}, fmt.Errorf("failed to create document: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (models.Document, error) {
	var rec DocumentRecord
	if err := s.db.NewSelect().Model(&rec).Where("d.id = ?", id).Scan(ctx); err != nil {
		return models.Document{}, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return rec.toModel(), nil
}

func (s *Store) updateDocument(ctx context.Context, id string, set func(q *bun.UpdateQuery) *bun.UpdateQuery) error {
	q := s.db.NewUpdate().Model((*DocumentRecord)(nil)).Where("id = ?", id)
	if _, err := set(q).Exec(ctx); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.updateDocument(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("processing_status = ?", string(models.StatusProcessing)).Set("error_message = NULL")
	})
}

func (s *Store) MarkProcessed(ctx context.Context, id string, totalChunks int, contentSummary string) error {
	return s.updateDocument(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("processing_status = ?", string(models.StatusProcessed)).
			Set("total_chunks = ?", totalChunks).
			Set("content_summary = ?", contentSummary).
			Set("processed_at = ?", time.Now().UTC())
	})
}

func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	return s.updateDocument(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("processing_status = ?", string(models.StatusError)).Set("error_message = ?", message)
	})
}

func (s *Store) SaveAISummary(ctx context.Context, id string, summary models.SummaryResult) error {
	return s.updateDocument(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("ai_summary = ?", summary.Summary).Set("keywords = ?", pgdialect.Array(summary.Keywords))
	})
}

// SaveChunks replaces the chunks of a document in one transaction, so either all
// chunks commit or none do
func (s *Store) SaveChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]ChunkRecord, len(chunks))
	for i, c := range chunks {
		rows[i] = ChunkRecord{
			ID:         c.ID,
			DocumentID: documentID,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			PageNumber: c.PageNumber,
		}
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChunkRecord)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

// CreateQAPairs upserts curated pairs, generating ids for new ones
func (s *Store) CreateQAPairs(ctx context.Context, pairs []models.QAPair) ([]models.QAPair, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	rows := make([]QAPairRecord, len(pairs))
	for i, p := range pairs {
		id := p.ID
		if id == "" {
			id = helper.MustUUID()
		}
		rows[i] = QAPairRecord{
			ID:        id,
			Question:  p.Question,
			Answer:    p.Answer,
			Category:  p.Category,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("question = EXCLUDED.question").
		Set("answer = EXCLUDED.answer").
		Set("category = EXCLUDED.category").
		Set("is_active = TRUE").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to store qa pairs: %w", err)
	}
	out := make([]models.QAPair, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) ListQAPairs(ctx context.Context) ([]models.QAPair, error) {
	var rows []QAPairRecord
	if err := s.db.NewSelect().Model(&rows).Where("qa.is_active = TRUE").Order("qa.created_at").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list qa pairs: %w", err)
	}
	pairs := make([]models.QAPair, len(rows))
	for i, r := range rows {
		pairs[i] = r.toModel()
	}
	return pairs, nil
}
