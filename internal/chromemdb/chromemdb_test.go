package chromemdb

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/models"
)

// bagOfWords is a deterministic embedding: hashed word counts plus a bias dimension
func bagOfWords(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 64)
	v[0] = 0.1
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[1+h.Sum32()%63]++
	}
	return v, nil
}

func newTestManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(t.TempDir(), "test", true, "", bagOfWords, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func TestRecall_Empty(t *testing.T) {
	m := newTestManager(t)
	hits, err := m.Recall(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexAndRecall(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	require.NoError(t, m.IndexChunks(ctx, "Install Guide.pdf", []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", ChunkIndex: 0, Content: "If wiring is required, turn off power at the fusebox first."},
		{ID: "c2", DocumentID: "doc-1", ChunkIndex: 1, Content: "The holiday calendar lists public holidays for the year."},
	}))
	require.NoError(t, m.IndexQAPairs(ctx, []models.QAPair{
		{ID: "qa-1", Question: "Support phone number?", Answer: "Call 555-123-4567", Category: "IT"},
	}))
	assert.Equal(t, 3, m.Count())

	hits, err := m.Recall(ctx, "turn off power fusebox wiring", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	top := hits[0]
	assert.Equal(t, models.ResultTypeDocument, top.Type)
	assert.Equal(t, "doc-1", top.ID)
	assert.Equal(t, "c1", top.ChunkID)
	assert.Equal(t, "Document - Install Guide.pdf", top.Source)

	hits, err = m.Recall(ctx, "support phone number", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, models.ResultTypeQAPair, hits[0].Type)
	assert.Equal(t, "qa-1", hits[0].ID)
	assert.Equal(t, "Call 555-123-4567", hits[0].Content)
	assert.Equal(t, "Q&A - IT", hits[0].Source)
}

func TestExport(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.Export(context.Background()), "export requires an encryption key")

	keyed, err := NewVectorDBManager(t.TempDir(), "test", true, "0123456789abcdef0123456789abcdef", bagOfWords, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, keyed.IndexChunks(context.Background(), "a.txt", []models.DocumentChunk{
		{ID: "c1", DocumentID: "d1", Content: "hello world"},
	}))
	assert.NoError(t, keyed.Export(context.Background()))
	assert.FileExists(t, keyed.filePath)

	restored, err := NewVectorDBManager(keyed.dbPath, "test", true, keyed.encryptionKey, bagOfWords, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, restored.Count())
	require.NoError(t, restored.Import(context.Background()))
	assert.Equal(t, 1, restored.Count())

	hits, err := restored.Recall(context.Background(), "hello", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
}
