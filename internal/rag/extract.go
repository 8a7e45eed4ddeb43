package rag

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"knowledge-assistant/internal/models"
	"knowledge-assistant/internal/normalizer"
)

const maxExtractedSentences = 3

// extractionRule pulls literal sentences out of document text when the question asks
// for the kind of fact the rule knows how to find
type extractionRule struct {
	name      string
	question  *regexp.Regexp
	sentences []*regexp.Regexp
}

func (r extractionRule) matches(sentence string) bool {
	for _, re := range r.sentences {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}

// rules are tried in order, first rule that finds a sentence wins
var extractionRules = []extractionRule{
	{
		name:     "equipment_package",
		question: regexp.MustCompile(`(?i)\b(equipment|package|kit|included|includes|come with|comes with)\b`),
		sentences: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(equipment|package|kit)\b.*\b(includes?|included|contains?|comes? with|consists? of)\b`),
			regexp.MustCompile(`(?i)\b(includes?|contains?|comes? with)\b.*\b(router|modem|cables?|devices?|units?|sensors?|panels?|brackets?|adapters?)\b`),
		},
	},
	{
		name:     "wiring_safety",
		question: regexp.MustCompile(`(?i)\b(wiring|electrical|electric|electricity|install|installation|safety|power|fuse ?box)\b`),
		sentences: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(turn off|switch off|shut off|isolate|disconnect)\b.*\b(power|electricity|mains|breaker|fuse ?box)\b`),
			regexp.MustCompile(`(?i)\b(wiring|electrical work)\b.*\b(must|only|qualified|licensed|electrician)\b`),
			regexp.MustCompile(`(?i)\b(never|do not|don't)\b.*\b(live|wiring|cables?)\b`),
		},
	},
	{
		name:     "customer_call_timing",
		question: regexp.MustCompile(`(?i)\b(call|contact|notify|phone)\b.*\b(customer|client)s?\b|\b(customer|client)s?\b.*\b(call|contact|notify)|\b(when|how soon|how long|timing)\b.*\b(call|contact|notify)\b`),
		sentences: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(call|contact|notify|phone)\b.*\b(customer|client)s?\b.*\b(\d+|one|two|three|a)\s*(hours?|days?|minutes?|weeks?)\b`),
			regexp.MustCompile(`(?i)\b(\d+|one|two|three|a)\s*(hours?|days?)\s+(before|prior to|ahead of|in advance)\b`),
			regexp.MustCompile(`(?i)\b(customer|client)s?\b.*\b(must|should) be (called|contacted|notified)\b`),
		},
	},
	{
		name:     "contact_details",
		question: regexp.MustCompile(`(?i)\b(e-?mail|phone|number|contact|reach|call|extension)\b`),
		sentences: []*regexp.Regexp{
			regexp.MustCompile(models.EmailRegex),
			regexp.MustCompile(models.PhoneRegex),
		},
	},
	{
		name:     "deadline_timeframe",
		question: regexp.MustCompile(`(?i)\b(deadline|due|when|how long|timeframe|time frame|within|by when)\b`),
		sentences: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(within|no later than|by|before|deadline|due)\b.*\b\d+\s*(business\s+|working\s+)?(days?|hours?|weeks?|months?)\b`),
			regexp.MustCompile(`(?i)\b(deadline|due date|due by|submit by)\b`),
			regexp.MustCompile(models.DateRegex),
		},
	},
}

type extraction struct {
	rule   string
	answer string
	source models.SearchResult
}

// topic returns the question keywords that did not trigger the rule. When every keyword
// is a trigger the whole keyword set is returned.
func (r extractionRule) topic(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if !r.question.MatchString(kw) {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return keywords
	}
	return out
}

// mentions reports whether sentence contains one of the keywords, allowing a dropped
// trailing letter for simple plurals
func mentions(sentence string, keywords []string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
		_, size := utf8.DecodeLastRuneInString(kw)
		if stem := kw[:len(kw)-size]; utf8.RuneCountInString(stem) > 2 && strings.Contains(lower, stem) {
			return true
		}
	}
	return false
}

// extract runs the rules over the document results and returns the first confident hit.
// A sentence is confident when it matches the rule and mentions the question's topic.
// Sentences come from the highest ranked document that has any, so attribution stays single-source.
func extract(question string, docs []models.SearchResult) (extraction, bool) {
	q := strings.TrimSpace(question)
	if q == "" || len(docs) == 0 {
		return extraction{}, false
	}
	keywords := normalizer.Keywords(q)
	for _, rule := range extractionRules {
		if !rule.question.MatchString(q) {
			continue
		}
		topic := rule.topic(keywords)
		for _, doc := range docs {
			found := matchingSentences(rule, doc.Answer, topic)
			if len(found) == 0 {
				continue
			}
			return extraction{
				rule:   rule.name,
				answer: fmt.Sprintf("According to %s: %s", doc.Source, strings.Join(found, " ")),
				source: doc,
			}, true
		}
	}
	return extraction{}, false
}

func matchingSentences(rule extractionRule, text string, topic []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range splitSentences(text) {
		if !rule.matches(s) || !mentions(s, topic) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == maxExtractedSentences {
			break
		}
	}
	return out
}

// splitSentences breaks on line ends and on . ! ? followed by whitespace, so emails,
// decimals and phone numbers stay intact
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}
