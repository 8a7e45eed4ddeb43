package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/models"
)

// openTestStore connects to the database named by KB_TEST_DATABASE_URL and resets the corpus tables
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration in short mode")
	}
	url := os.Getenv("KB_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("KB_TEST_DATABASE_URL not set")
	}

	sqldb, err := ConnectDB(&config.DatabaseConfig{URL: url, Driver: "pq"})
	require.NoError(t, err)
	db := NewDB(sqldb, false)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, InitDB(ctx, db))
	_, err = db.ExecContext(ctx, "TRUNCATE qa_pairs, document_chunks, documents, search_analytics")
	require.NoError(t, err)
	return NewStore(db)
}

func scoresByID(rows []models.EnhancedRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.BaseScore
	}
	return out
}

func TestEnhancedSearch_Scores(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.CreateQAPairs(ctx, []models.QAPair{{
		ID:       "qa-vacation",
		Question: "How many vacation days do employees get?",
		Answer:   "Employees get 20 vacation days per year.",
		Category: "HR",
	}})
	require.NoError(t, err)

	doc, err := store.CreateDocument(ctx, "Safety.pdf")
	require.NoError(t, err)
	require.NoError(t, store.SaveChunks(ctx, doc.ID, []models.DocumentChunk{{
		ID:         "chunk-wiring",
		ChunkIndex: 0,
		Content:    "If wiring is required, turn off power at the fusebox first.",
		PageNumber: 1,
	}}))
	require.NoError(t, store.MarkProcessed(ctx, doc.ID, 1, "1 chunk"))

	tests := []struct {
		query string
		id    string
		score float64
	}{
		{"vacation days", "qa-vacation", 2.0},
		{"vacation days employees", "qa-vacation", 1.0},
		{"vacation allowance", "qa-vacation", 0.5},
		{"wiring safety required", doc.ID, 2.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rows, err := store.EnhancedSearch(ctx, tt.query, "", 10)
			require.NoError(t, err)
			scores := scoresByID(rows)
			require.Contains(t, scores, tt.id)
			assert.InDelta(t, tt.score, scores[tt.id], 1e-6)
			for _, r := range rows {
				require.NoError(t, r.Validate())
			}
		})
	}
}

func TestEnhancedSearch_WildcardsAreLiteral(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.CreateQAPairs(ctx, []models.QAPair{{
		ID:       "qa-leave",
		Question: "Where do I book leave?",
		Answer:   "Use the HR portal.",
	}})
	require.NoError(t, err)

	for _, query := range []string{"____", "%", "parking"} {
		rows, err := store.EnhancedSearch(ctx, query, "", 10)
		require.NoError(t, err)
		assert.Empty(t, rows, query)
	}

	qa, err := store.SearchQAPairs(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, qa)
}
