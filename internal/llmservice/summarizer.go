package llmservice

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/models"
)

const maxKeywords = 10

var codeFenceRegex = regexp.MustCompile(models.CodeFenceTag)

// Summarizer produces a short synopsis and keyword list for an ingested document
type Summarizer struct {
	model llms.Model
	opts  []llms.CallOption
	log   zerolog.Logger
}

func NewSummarizer(model llms.Model, llmConfig *config.LLMConfig, logger zerolog.Logger) *Summarizer {
	return &Summarizer{
		model: model,
		opts:  callOptions(llmConfig),
		log:   logger.With().Str("component", "summarizer").Logger(),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (models.SummaryResult, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(models.SummaryPromptTemplate, text)),
	}
	content, err := GenerateContent(ctx, s.model, messages, s.opts...)
	if err != nil {
		return models.SummaryResult{}, wrap("failed to summarize", err)
	}
	return parseSummary(content)
}

// parseSummary accepts bare json or json wrapped in a markdown code fence
func parseSummary(content string) (models.SummaryResult, error) {
	content = strings.TrimSpace(content)
	if m := codeFenceRegex.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	var res models.SummaryResult
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return models.SummaryResult{}, fmt.Errorf("failed to parse summary: %w", err)
	}
	res.Summary = strings.TrimSpace(res.Summary)
	if res.Summary == "" {
		return models.SummaryResult{}, ErrEmptyAnswer
	}

	seen := make(map[string]struct{}, len(res.Keywords))
	keywords := make([]string, 0, len(res.Keywords))
	for _, k := range res.Keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, k)
		if len(keywords) == maxKeywords {
			break
		}
	}
	res.Keywords = keywords
	return res, nil
}
