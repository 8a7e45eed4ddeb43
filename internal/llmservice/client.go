package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/models"
)

// ErrEmptyAnswer is returned when the model responds with nothing usable
var ErrEmptyAnswer = errors.New("model returned an empty answer")

var thinkRegex = regexp.MustCompile(models.ThinkTag)

// NewLLM builds an OpenAI compatible chat model (OpenRouter, Supabase edge proxy, OpenAI itself)
func NewLLM(llmConfig *config.LLMConfig) (*openai.LLM, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating llm client")
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
		openai.WithHTTPClient(&http.Client{Timeout: llmConfig.Timeout()}),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	return openai.New(opts...)
}

// call llm and return the text of the first choice with any reasoning block removed
func GenerateContent(ctx context.Context, model llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	content := strings.TrimSpace(thinkRegex.ReplaceAllString(resp.Choices[0].Content, ""))
	if content == "" {
		return "", ErrEmptyAnswer
	}
	return content, nil
}

func callOptions(llmConfig *config.LLMConfig) []llms.CallOption {
	if llmConfig == nil {
		return nil
	}
	return []llms.CallOption{
		llms.WithTemperature(llmConfig.Temperature),
		llms.WithMaxTokens(llmConfig.MaxTokens),
	}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
