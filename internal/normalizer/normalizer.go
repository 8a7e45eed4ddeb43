// Package normalizer maps free-text questions to a canonical form, an intent tag and keywords.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"knowledge-assistant/internal/models"
)

const (
	maxKeywords   = 8
	matchedScore  = 0.95
	fallbackScore = 0.5
)

// PatternFamily groups regexes that share one canonical rewrite.
// Families are evaluated in slice order and the first match wins.
type PatternFamily struct {
	Name      string
	Patterns  []*regexp.Regexp
	Canonical string
	Intent    models.Intent
	Keywords  []string
	// AppendTopic adds the question's own keywords after the canonical form
	AppendTopic bool
}

type Normalizer struct {
	families []PatternFamily
	log      zerolog.Logger
}

func New(logger zerolog.Logger) *Normalizer {
	return NewWithFamilies(DefaultFamilies(), logger)
}

func NewWithFamilies(families []PatternFamily, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		families: families,
		log:      logger.With().Str("component", "normalizer").Logger(),
	}
}

// DefaultFamilies returns the built-in families in priority order:
// support phone, customer communication, equipment, generic process.
func DefaultFamilies() []PatternFamily {
	return []PatternFamily{
		{
			Name: "support_phone",
			Patterns: compile(
				`\b(number|phone|hotline|line)\b.*\b(call|reach|contact|dial)\b.*\b(support|help ?desk|tech support|it support|it department)\b`,
				`\b(call|reach|contact|phone|dial)\b.*\b(support|help ?desk|tech support|it support|it department)\b`,
				`\b(support|help ?desk)\b.*\b(phone|number|hotline)\b`,
				`\b(phone|number|hotline)\b.*\b(support|help ?desk)\b`,
			),
			Canonical: "support phone number",
			Intent:    models.IntentSupportPhone,
			Keywords:  []string{"support", "phone", "number", "contact"},
		},
		{
			Name: "customer_communication",
			Patterns: compile(
				`\b(when|how soon|how long|how quickly|what time)\b.*\b(call|contact|phone|notify|reach)\b.*\b(customer|client)s?\b`,
				`\b(call|contact|phone|notify)\b.*\b(customer|client)s?\b`,
				`\b(customer|client)s?\b.*\b(call|contact|communication|notification|notify)\b`,
			),
			Canonical: "customer call requirements",
			Intent:    models.IntentCustomerCommunication,
			Keywords:  []string{"customer", "call", "contact", "timing"},
		},
		{
			Name: "equipment",
			Patterns: compile(
				`\b(what|which)\b.*\b(equipment|tools|hardware|devices?)\b`,
				`\b(equipment|package|kit)\b.*\b(include|included|includes|contain|contains|come with|list)\b`,
				`\b(standard|basic|premium|deluxe)\s+(package|kit|installation)\b`,
			),
			Canonical: "equipment package contents",
			Intent:    models.IntentEquipmentInquiry,
			Keywords:  []string{"equipment", "package", "standard", "included"},
		},
		{
			Name: "process",
			Patterns: compile(
				`^how (do|can|should|would) (i|we|you)\b`,
				`\b(what|which) (is|are) the (process|procedure|steps|policy)\b`,
				`\b(process|procedure|steps|instructions)\b.*\b(for|to)\b`,
			),
			Canonical:   "process steps",
			Intent:      models.IntentProcessInquiry,
			Keywords:    []string{"process", "procedure", "steps"},
			AppendTopic: true,
		},
	}
}

// Normalize never fails: unmatched questions degrade to keyword extraction
func (n *Normalizer) Normalize(question string) models.NormalizedQuestion {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, family := range n.families {
		for i, re := range family.Patterns {
			if !re.MatchString(q) {
				continue
			}
			n.log.Debug().
				Str("pattern", family.Name).
				Int("pattern_index", i).
				Str("intent", string(family.Intent)).
				Msg("question pattern matched")
			return family.apply(q)
		}
	}

	keywords := Keywords(q)
	normalized := q
	if len(keywords) > 0 {
		normalized = strings.Join(keywords, " ")
	}
	n.log.Debug().Strs("keywords", keywords).Msg("no pattern matched, using keywords")
	return models.NormalizedQuestion{
		Normalized:    normalized,
		Intent:        models.IntentNone,
		Keywords:      keywords,
		SemanticScore: fallbackScore,
	}
}

func (f PatternFamily) apply(q string) models.NormalizedQuestion {
	keywords := append([]string(nil), f.Keywords...)
	normalized := f.Canonical
	if f.AppendTopic {
		var topic []string
		seen := toSet(keywords)
		for _, k := range Keywords(q) {
			if _, ok := seen[k]; ok {
				continue
			}
			topic = append(topic, k)
		}
		if len(topic) > 0 {
			normalized += " " + strings.Join(topic, " ")
		}
		keywords = append(keywords, topic...)
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return models.NormalizedQuestion{
		Normalized:    normalized,
		Intent:        f.Intent,
		Keywords:      keywords,
		SemanticScore: matchedScore,
	}
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
