package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRow = errors.New("invalid enhanced search row")

// EnhancedRow is one row returned by the enhanced_search database function
type EnhancedRow struct {
	ResultType   string  `bun:"result_type" json:"result_type"`
	ID           string  `bun:"id" json:"id"`
	Title        string  `bun:"title" json:"title"`
	Content      string  `bun:"content" json:"content"`
	Source       string  `bun:"source" json:"source"`
	Category     string  `bun:"category" json:"category"`
	BaseScore    float64 `bun:"base_score" json:"base_score"`
	ContextBonus float64 `bun:"context_bonus" json:"context_bonus"`
}

func (r EnhancedRow) Validate() error {
	switch ResultType(r.ResultType) {
	case ResultTypeQAPair, ResultTypeDocument:
	default:
		return fmt.Errorf("%w: unknown result_type %q", ErrInvalidRow, r.ResultType)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRow)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: empty content for %s", ErrInvalidRow, r.ID)
	}
	if r.BaseScore < 0 || r.ContextBonus < 0 {
		return fmt.Errorf("%w: negative score for %s", ErrInvalidRow, r.ID)
	}
	return nil
}

// ToSearchResult validates the row and maps it into a SearchResult
func (r EnhancedRow) ToSearchResult() (SearchResult, error) {
	if err := r.Validate(); err != nil {
		return SearchResult{}, err
	}
	res := SearchResult{
		Type:           ResultType(r.ResultType),
		ID:             r.ID,
		Answer:         r.Content,
		Source:         r.Source,
		RelevanceScore: r.BaseScore + r.ContextBonus,
	}
	if res.Type == ResultTypeQAPair {
		res.Question = r.Title
		res.Category = r.Category
		if res.Source == "" {
			res.Source = QASource(r.Category)
		}
	} else if res.Source == "" {
		res.Source = DocumentSource(r.Title)
	}
	return res, nil
}

// QASource formats the attribution for a Q&A pair, e.g. "Q&A - HR"
func QASource(category string) string {
	if category == "" {
		category = "General"
	}
	return "Q&A - " + category
}

// DocumentSource formats the attribution for a document chunk
func DocumentSource(name string) string {
	return "Document - " + name
}
