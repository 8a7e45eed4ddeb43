package models

import "time"

type ResultType string

const (
	ResultTypeQAPair   ResultType = "qa_pair"
	ResultTypeDocument ResultType = "document"
)

type SourceType string

const (
	SourceTypeQAPair      SourceType = "qa_pair"
	SourceTypeDocument    SourceType = "document"
	SourceTypeAIGenerated SourceType = "ai_generated"
)

type ProcessingStatus string

const (
	StatusUploaded   ProcessingStatus = "uploaded"
	StatusProcessing ProcessingStatus = "processing"
	StatusProcessed  ProcessingStatus = "processed"
	StatusError      ProcessingStatus = "error"
)

type Intent string

const (
	IntentNone                  Intent = ""
	IntentSupportPhone          Intent = "support_phone"
	IntentCustomerCommunication Intent = "customer_communication"
	IntentEquipmentInquiry      Intent = "equipment_inquiry"
	IntentProcessInquiry        Intent = "process_inquiry"
)

// SearchResult is one ranked candidate, recomputed on every query
type SearchResult struct {
	Type           ResultType `json:"type"`
	ID             string     `json:"id"`
	ChunkID        string     `json:"chunk_id,omitempty"`
	Question       string     `json:"question,omitempty"`
	Answer         string     `json:"answer"`
	Source         string     `json:"source"`
	Category       string     `json:"category,omitempty"`
	RelevanceScore float64    `json:"relevanceScore"`
}

// QAPair is a curated question/answer record
type QAPair struct {
	ID         string `json:"id" yaml:"id"`
	Question   string `json:"question" yaml:"question"`
	Answer     string `json:"answer" yaml:"answer"`
	Category   string `json:"category" yaml:"category"`
	UsageCount int    `json:"usage_count" yaml:"-"`
	IsActive   bool   `json:"is_active" yaml:"-"`
}

// Document is an uploaded file tracked through ingestion
type Document struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Status         ProcessingStatus `json:"processing_status"`
	TotalChunks    int              `json:"total_chunks"`
	ContentSummary string           `json:"content_summary,omitempty"`
	AISummary      string           `json:"ai_summary,omitempty"`
	Keywords       []string         `json:"keywords,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// DocumentChunk is a bounded slice of a document's extracted text
type DocumentChunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	PageNumber int    `json:"page_number"`
}

// ChunkHit is a chunk returned from a substring search, joined with its document name
type ChunkHit struct {
	DocumentChunk
	DocumentName string `json:"document_name"`
}

// PageNumberFor approximates a page from the chunk position, three chunks per page
func PageNumberFor(chunkIndex int) int {
	return chunkIndex/3 + 1
}

type NormalizedQuestion struct {
	Normalized    string   `json:"normalized"`
	Intent        Intent   `json:"intent,omitempty"`
	Keywords      []string `json:"keywords"`
	SemanticScore float64  `json:"semanticScore"`
}

type ConversationTurn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

type AnswerGenerationResult struct {
	Answer        string         `json:"answer"`
	Source        string         `json:"source,omitempty"`
	SourceType    SourceType     `json:"sourceType"`
	SourceID      string         `json:"sourceId,omitempty"`
	SearchResults []SearchResult `json:"searchResults"`
	AIGenerated   bool           `json:"aiGenerated"`
}

// GenerationResult is what the AI collaborator returns
type GenerationResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type SummaryResult struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// QueryAnalytics is a single analytics row written after each answer
type QueryAnalytics struct {
	Query       string
	SourceType  SourceType
	ResultCount int
	TopScore    float64
}

// RecallHit is a semantic neighbour from the local vector mirror
type RecallHit struct {
	Type       ResultType
	ID         string
	ChunkID    string
	Title      string
	Content    string
	Source     string
	Category   string
	Similarity float64
}
