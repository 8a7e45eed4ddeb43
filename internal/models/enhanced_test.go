package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancedRow_ToSearchResult(t *testing.T) {
	t.Run("qa pair", func(t *testing.T) {
		row := EnhancedRow{
			ResultType:   "qa_pair",
			ID:           "qa-1",
			Title:        "Support phone number?",
			Content:      "Call 555-123-4567",
			Category:     "IT",
			BaseScore:    0.7,
			ContextBonus: 0.2,
		}
		res, err := row.ToSearchResult()
		require.NoError(t, err)
		assert.Equal(t, ResultTypeQAPair, res.Type)
		assert.Equal(t, "Support phone number?", res.Question)
		assert.Equal(t, "Q&A - IT", res.Source)
		assert.InDelta(t, 0.9, res.RelevanceScore, 1e-9)
	})

	t.Run("document keeps given source", func(t *testing.T) {
		row := EnhancedRow{ResultType: "document", ID: "doc-1", Title: "Policy.docx",
			Content: "Some content", Source: "Document - Policy.docx", BaseScore: 0.4}
		res, err := row.ToSearchResult()
		require.NoError(t, err)
		assert.Empty(t, res.Question)
		assert.Equal(t, "Document - Policy.docx", res.Source)
		assert.InDelta(t, 0.4, res.RelevanceScore, 1e-9)
	})

	t.Run("document derives source from title", func(t *testing.T) {
		row := EnhancedRow{ResultType: "document", ID: "doc-1", Title: "Guide.pdf", Content: "x"}
		res, err := row.ToSearchResult()
		require.NoError(t, err)
		assert.Equal(t, "Document - Guide.pdf", res.Source)
	})
}

func TestEnhancedRow_Validate(t *testing.T) {
	tests := []struct {
		name string
		row  EnhancedRow
	}{
		{"unknown type", EnhancedRow{ResultType: "video", ID: "1", Content: "x"}},
		{"missing id", EnhancedRow{ResultType: "document", Content: "x"}},
		{"empty content", EnhancedRow{ResultType: "document", ID: "1", Content: "  "}},
		{"negative score", EnhancedRow{ResultType: "qa_pair", ID: "1", Content: "x", BaseScore: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			assert.ErrorIs(t, err, ErrInvalidRow)
		})
	}
}

func TestPageNumberFor(t *testing.T) {
	assert.Equal(t, 1, PageNumberFor(0))
	assert.Equal(t, 1, PageNumberFor(2))
	assert.Equal(t, 2, PageNumberFor(3))
	assert.Equal(t, 4, PageNumberFor(10))
}
