package normalizer

import (
	"strings"
	"unicode"
)

var stopwords = toSet(strings.Fields(`
a about above after again all also am an and any are as at be because been before being
below between both but by can cannot could did do does doing down during each few for from
further get got had has have having he her here hers him his how i if in into is it its
itself just know let me more most my need no nor not of off on once only or other our ours
out over own please same she should so some such tell than that the their theirs them then
there these they this those through to too under until up very was we were what when where
which while who whom why will with would you your yours want wants like
`))

// Keywords lowercases text, strips punctuation and drops stopwords and tokens of two
// characters or fewer. The first eight distinct tokens are returned in original order.
func Keywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
