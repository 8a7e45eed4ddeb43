package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/models"
)

// Generator answers a question from ranked evidence and the conversation so far
type Generator struct {
	model llms.Model
	opts  []llms.CallOption
	log   zerolog.Logger
}

func NewGenerator(model llms.Model, llmConfig *config.LLMConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		model: model,
		opts:  callOptions(llmConfig),
		log:   logger.With().Str("component", "generator").Logger(),
	}
}

func (g *Generator) Generate(ctx context.Context, question string, evidence []models.SearchResult, history []models.ConversationTurn) (*models.GenerationResult, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, models.AnswerSystemPrompt))
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		role := schema.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman,
		fmt.Sprintf(models.AnswerPromptTemplate, buildContext(evidence), question)))

	g.log.Debug().Int("evidence", len(evidence)).Int("history", len(history)).Msg("generating answer")
	answer, err := GenerateContent(ctx, g.model, messages, g.opts...)
	if err != nil {
		return nil, wrap("failed to generate answer", err)
	}
	return &models.GenerationResult{Answer: answer, Sources: sources(evidence)}, nil
}

func buildContext(evidence []models.SearchResult) string {
	parts := make([]string, 0, len(evidence))
	for _, r := range evidence {
		text := r.Answer
		if r.Type == models.ResultTypeQAPair && r.Question != "" {
			text = "Q: " + r.Question + "\nA: " + r.Answer
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", r.Source, text))
	}
	return strings.Join(parts, models.ContextSeparator)
}

func sources(evidence []models.SearchResult) []string {
	seen := make(map[string]struct{}, len(evidence))
	var out []string
	for _, r := range evidence {
		if r.Source == "" {
			continue
		}
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
