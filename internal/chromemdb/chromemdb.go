package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"knowledge-assistant/internal/models"
)

// metadata keys stored with every vector
const (
	metaKind         = "kind"
	metaDocumentID   = "document_id"
	metaDocumentName = "document_name"
	metaChunkIndex   = "chunk_index"
	metaQAID         = "qa_id"
	metaQuestion     = "question"
	metaAnswer       = "answer"
	metaCategory     = "category"
)

// VectorDBManager keeps a local chromem-go mirror of chunks and Q&A pairs for semantic recall
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
	embed         chromem.EmbeddingFunc
	log           zerolog.Logger
}

const (
	compress = false
)

// NewVectorDBManager initializes a new vector database manager and its collection
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string, embed chromem.EmbeddingFunc, logger zerolog.Logger) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	c, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &VectorDBManager{
		db:            db,
		collection:    c,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
		filePath:      dbPath + "/" + collectionName + ".chromem",
		embed:         embed,
		log:           logger.With().Str("component", "vector_mirror").Logger(),
	}, nil
}

// Count returns the number of vectors in the collection
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// IndexChunks embeds and stores the chunks of one document
func (m *VectorDBManager) IndexChunks(ctx context.Context, documentName string, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				metaKind:         string(models.ResultTypeDocument),
				metaDocumentID:   c.DocumentID,
				metaDocumentName: documentName,
				metaChunkIndex:   strconv.Itoa(c.ChunkIndex),
			},
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chunks: %v", err)
	}
	m.log.Debug().Str("document", documentName).Int("chunks", len(docs)).Msg("indexed chunks")
	return nil
}

// IndexQAPairs embeds question and answer together so either side can be recalled
func (m *VectorDBManager) IndexQAPairs(ctx context.Context, pairs []models.QAPair) error {
	if len(pairs) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(pairs))
	for i, p := range pairs {
		docs[i] = chromem.Document{
			ID:      "qa-" + p.ID,
			Content: p.Question + "\n" + p.Answer,
			Metadata: map[string]string{
				metaKind:     string(models.ResultTypeQAPair),
				metaQAID:     p.ID,
				metaQuestion: p.Question,
				metaAnswer:   p.Answer,
				metaCategory: p.Category,
			},
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add qa pairs: %v", err)
	}
	return nil
}

// Recall returns the n nearest chunks or Q&A pairs for the query text
func (m *VectorDBManager) Recall(ctx context.Context, query string, n int) ([]models.RecallHit, error) {
	count := m.collection.Count()
	if count == 0 || n <= 0 {
		return nil, nil
	}
	n = min(n, count)

	results, err := m.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	hits := make([]models.RecallHit, 0, len(results))
	for _, r := range results {
		switch models.ResultType(r.Metadata[metaKind]) {
		case models.ResultTypeDocument:
			name := r.Metadata[metaDocumentName]
			hits = append(hits, models.RecallHit{
				Type:       models.ResultTypeDocument,
				ID:         r.Metadata[metaDocumentID],
				ChunkID:    r.ID,
				Title:      name,
				Content:    r.Content,
				Source:     models.DocumentSource(name),
				Similarity: float64(r.Similarity),
			})
		case models.ResultTypeQAPair:
			hits = append(hits, models.RecallHit{
				Type:       models.ResultTypeQAPair,
				ID:         r.Metadata[metaQAID],
				Title:      r.Metadata[metaQuestion],
				Content:    r.Metadata[metaAnswer],
				Category:   r.Metadata[metaCategory],
				Source:     models.QASource(r.Metadata[metaCategory]),
				Similarity: float64(r.Similarity),
			})
		}
	}
	return hits, nil
}

// export to an encrypted file
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}

	m.log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Msg("exporting collection")
	err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// import from an encrypted file written by Export, replacing the collection
func (m *VectorDBManager) Import(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}

	name := m.collection.Name
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	c := m.db.GetCollection(name, m.embed)
	if c == nil {
		return fmt.Errorf("collection %s missing after import", name)
	}
	m.collection = c
	m.log.Debug().Str("collection", name).Int("count", c.Count()).Msg("imported collection")
	return nil
}
