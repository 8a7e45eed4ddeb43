package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"knowledge-assistant/internal/models"
)

const maxSummaryItems = 5

var (
	emailRe = regexp.MustCompile(models.EmailRegex)
	phoneRe = regexp.MustCompile(models.PhoneRegex)
	dateRe  = regexp.MustCompile(models.DateRegex)
)

// ContentSummary describes the text from regex-detected emails, phone numbers and
// dates plus word and chunk counts. It does not depend on any AI call.
func ContentSummary(text string, chunkCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document contains %d words across %d chunks.", len(strings.Fields(text)), chunkCount)

	if emails := distinct(emailRe.FindAllString(text, -1)); len(emails) > 0 {
		fmt.Fprintf(&b, " Contact emails: %s.", strings.Join(emails, ", "))
	}
	if phones := distinct(phoneRe.FindAllString(text, -1)); len(phones) > 0 {
		fmt.Fprintf(&b, " Phone numbers: %s.", strings.Join(phones, ", "))
	}
	if dates := distinct(dateRe.FindAllString(text, -1)); len(dates) > 0 {
		fmt.Fprintf(&b, " Dates mentioned: %s.", strings.Join(dates, ", "))
	}
	return b.String()
}

func distinct(items []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, it := range items {
		it = strings.TrimSpace(it)
		if _, ok := seen[it]; ok || it == "" {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
		if len(out) == maxSummaryItems {
			break
		}
	}
	return out
}
