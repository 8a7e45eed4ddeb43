package db

import (
	"time"

	"github.com/uptrace/bun"

	"knowledge-assistant/internal/models"
)

type QAPairRecord struct {
	bun.BaseModel `bun:"table:qa_pairs,alias:qa"`
	ID            string    `bun:"id,pk"`
	Question      string    `bun:"question,notnull"`
	Answer        string    `bun:"answer,notnull"`
	Category      string    `bun:"category"`
	UsageCount    int       `bun:"usage_count,notnull,default:0"`
	IsActive      bool      `bun:"is_active,notnull,default:true"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type DocumentRecord struct {
	bun.BaseModel    `bun:"table:documents,alias:d"`
	ID               string     `bun:"id,pk"`
	Name             string     `bun:"name,notnull"`
	ProcessingStatus string     `bun:"processing_status,notnull,default:'uploaded'"`
	TotalChunks      int        `bun:"total_chunks,notnull,default:0"`
	ContentSummary   string     `bun:"content_summary,nullzero"`
	AISummary        string     `bun:"ai_summary,nullzero"`
	Keywords         []string   `bun:"keywords,array"`
	ErrorMessage     string     `bun:"error_message,nullzero"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	ProcessedAt      *time.Time `bun:"processed_at"`
}

type ChunkRecord struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`
	ID            string `bun:"id,pk"`
	DocumentID    string `bun:"document_id,notnull"`
	ChunkIndex    int    `bun:"chunk_index,notnull"`
	Content       string `bun:"content,notnull"`
	PageNumber    int    `bun:"page_number,notnull"`
	DocumentName  string `bun:"document_name,scanonly"`
}

type AnalyticsRecord struct {
	bun.BaseModel `bun:"table:search_analytics,alias:sa"`
	ID            string    `bun:"id,pk"`
	Query         string    `bun:"query,notnull"`
	SourceType    string    `bun:"source_type,notnull"`
	ResultCount   int       `bun:"result_count,notnull"`
	TopScore      float64   `bun:"top_score,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (r QAPairRecord) toModel() models.QAPair {
	return models.QAPair{
		ID:         r.ID,
		Question:   r.Question,
		Answer:     r.Answer,
		Category:   r.Category,
		UsageCount: r.UsageCount,
		IsActive:   r.IsActive,
	}
}

func (r ChunkRecord) toHit() models.ChunkHit {
	return models.ChunkHit{
		DocumentChunk: models.DocumentChunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			PageNumber: r.PageNumber,
		},
		DocumentName: r.DocumentName,
	}
}

func (r DocumentRecord) toModel() models.Document {
	return models.Document{
		ID:             r.ID,
		Name:           r.Name,
		Status:         models.ProcessingStatus(r.ProcessingStatus),
		TotalChunks:    r.TotalChunks,
		ContentSummary: r.ContentSummary,
		AISummary:      r.AISummary,
		Keywords:       r.Keywords,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
	}
}

// schemaStatements run after table creation; all are idempotent.
// enhanced_search scores rows on the same 0..2 scale as the fallback scorers:
// 1.0 when the whole query appears in the text, plus the share of query terms found.
var schemaStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks (document_id, chunk_index)`,
	`CREATE INDEX IF NOT EXISTS idx_qa_pairs_active ON qa_pairs (is_active)`,
	`CREATE OR REPLACE FUNCTION kb_like_pattern(term text)
RETURNS text
LANGUAGE sql IMMUTABLE AS $$
	SELECT '%' || replace(replace(replace(btrim(term), '\', '\\'), '%', '\%'), '_', '\_') || '%'
$$`,
	`CREATE OR REPLACE FUNCTION kb_term_share(search_query text, body text)
RETURNS double precision
LANGUAGE sql IMMUTABLE AS $$
	SELECT COALESCE(avg(CASE WHEN body ILIKE kb_like_pattern(w) THEN 1.0 ELSE 0.0 END), 0)::double precision
	FROM regexp_split_to_table(lower(regexp_replace(search_query, '[^[:alnum:][:space:]]+', ' ', 'g')), '\s+') AS w
	WHERE length(w) > 2
$$`,
	`CREATE OR REPLACE FUNCTION enhanced_search(search_query text, search_context text, result_limit int)
RETURNS TABLE (
	result_type text,
	id text,
	title text,
	content text,
	source text,
	category text,
	base_score double precision,
	context_bonus double precision
)
LANGUAGE sql STABLE AS $$
	SELECT * FROM (
		SELECT 'qa_pair'::text,
			qa.id,
			qa.question,
			qa.answer,
			'Q&A - ' || COALESCE(NULLIF(qa.category, ''), 'General'),
			COALESCE(qa.category, ''),
			s.base,
			(CASE WHEN btrim(search_context) <> '' AND qa.category ILIKE kb_like_pattern(search_context) THEN 0.1 ELSE 0.0 END)::double precision
		FROM qa_pairs qa
		CROSS JOIN LATERAL (SELECT
			(CASE WHEN btrim(search_query) <> '' AND qa.question ILIKE kb_like_pattern(search_query) THEN 1.0 ELSE 0.0 END
				+ kb_term_share(search_query, qa.question || ' ' || qa.answer))::double precision AS base) s
		WHERE qa.is_active AND s.base > 0
		UNION ALL
		SELECT 'document'::text,
			dc.document_id,
			d.name,
			dc.content,
			'Document - ' || d.name,
			'',
			s.base,
			(CASE WHEN btrim(search_context) <> '' AND d.keywords IS NOT NULL
				AND EXISTS (SELECT 1 FROM unnest(d.keywords) k WHERE search_context ILIKE kb_like_pattern(k)) THEN 0.1 ELSE 0.0 END)::double precision
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		CROSS JOIN LATERAL (SELECT
			(CASE WHEN btrim(search_query) <> '' AND dc.content ILIKE kb_like_pattern(search_query) THEN 1.0 ELSE 0.0 END
				+ kb_term_share(search_query, dc.content))::double precision AS base) s
		WHERE d.processing_status = 'processed' AND s.base > 0
	) AS ranked (r_type, r_id, r_title, r_content, r_source, r_category, r_base, r_bonus)
	ORDER BY r_base + r_bonus DESC
	LIMIT result_limit
$$`,
}
