// Package scorer computes heuristic relevance between a query and a candidate text.
package scorer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	containmentBonus  = 1.0
	supportBonus      = 0.9
	customerCallBonus = 0.95
	equipmentBonus    = 0.9
	wordMatchBonus    = 0.3
	partialWeight     = 0.5
)

var (
	supportVocab   = regexp.MustCompile(`\b(phone|telephone|number|call|support|help ?desk|hotline|contact)\b`)
	customerVocab  = regexp.MustCompile(`\b(customer|client)s?\b`)
	callVocab      = regexp.MustCompile(`\b(call|calls|calling|called|phone|contact)\b`)
	equipmentVocab = regexp.MustCompile(`\b(equipment|package|packages|standard)\b`)
)

// Scorer bundles both scoring functions with an optional cap on the enhanced score
type Scorer struct {
	enhancedCap float64
}

// New returns a Scorer; enhancedCap <= 0 leaves the enhanced score uncapped
func New(enhancedCap float64) *Scorer {
	return &Scorer{enhancedCap: enhancedCap}
}

func (s *Scorer) Basic(query, content string) float64 {
	return Basic(query, content)
}

func (s *Scorer) Enhanced(query, content string) float64 {
	score := Enhanced(query, content)
	if s.enhancedCap > 0 && score > s.enhancedCap {
		return s.enhancedCap
	}
	return score
}

// Basic scores token overlap in [0, 1]. Exact substring hits count fully, hits on the
// word minus its last rune count half, which covers simple plurals.
func Basic(query, content string) float64 {
	words := queryWords(query)
	if len(words) == 0 || strings.TrimSpace(content) == "" {
		return 0
	}
	lc := strings.ToLower(content)

	var exact, partial int
	for _, w := range words {
		if strings.Contains(lc, w) {
			exact++
			continue
		}
		_, size := utf8.DecodeLastRuneInString(w)
		if strings.Contains(lc, w[:len(w)-size]) {
			partial++
		}
	}

	n := float64(len(words))
	score := float64(exact)/n + partialWeight*float64(partial)/n
	return min(score, 1.0)
}

// Enhanced adds fixed bonuses for containment and shared domain vocabulary plus a
// bonus per matched word. The sum is not capped, so it can exceed 1.
func Enhanced(query, content string) float64 {
	lq := strings.TrimFunc(strings.ToLower(strings.TrimSpace(query)), unicode.IsPunct)
	lc := strings.ToLower(content)
	if lq == "" || strings.TrimSpace(lc) == "" {
		return 0
	}

	var score float64
	if strings.Contains(lc, lq) {
		score += containmentBonus
	}
	if supportVocab.MatchString(lq) && supportVocab.MatchString(lc) {
		score += supportBonus
	}
	if customerVocab.MatchString(lq) && callVocab.MatchString(lq) &&
		customerVocab.MatchString(lc) && callVocab.MatchString(lc) {
		score += customerCallBonus
	}
	if equipmentVocab.MatchString(lq) && equipmentVocab.MatchString(lc) {
		score += equipmentBonus
	}
	for _, w := range queryWords(lq) {
		if strings.Contains(lc, w) {
			score += wordMatchBonus
		}
	}
	return score
}

// queryWords splits on whitespace, trims edge punctuation and keeps words longer than two characters
func queryWords(query string) []string {
	var words []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		w := strings.TrimFunc(f, unicode.IsPunct)
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}
