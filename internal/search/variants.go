package search

import (
	"strings"

	"knowledge-assistant/internal/normalizer"
)

// domainTerms adds related vocabulary when a query keyword starts with the trigger
var domainTerms = []struct {
	trigger string
	extra   []string
}{
	{"equipment", []string{"equipment", "package", "standard"}},
	{"package", []string{"equipment", "package"}},
	{"phone", []string{"phone", "support"}},
	{"number", []string{"phone", "number"}},
	{"support", []string{"support", "help desk"}},
	{"customer", []string{"customer", "client"}},
	{"call", []string{"call", "contact"}},
	{"wiring", []string{"wiring", "electrical"}},
	{"install", []string{"installation"}},
	{"deadline", []string{"deadline", "due"}},
	{"email", []string{"email", "contact"}},
}

// Variants expands a query into the substring probes issued by the fallback path:
// the query itself, its keywords and any domain terms the keywords trigger.
func Variants(query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	add(q)
	keywords := normalizer.Keywords(q)
	for _, k := range keywords {
		add(k)
	}
	for _, k := range keywords {
		for _, d := range domainTerms {
			if !strings.HasPrefix(k, d.trigger) {
				continue
			}
			for _, e := range d.extra {
				add(e)
			}
		}
	}
	return out
}
