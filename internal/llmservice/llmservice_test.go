package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/models"
)

type fakeModel struct {
	content  string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func textOf(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func TestGenerate(t *testing.T) {
	model := &fakeModel{content: "<think>checking the context</think>\nCall the help desk on 555-123-4567."}
	g := NewGenerator(model, &config.LLMConfig{Temperature: 0.3, MaxTokens: 100}, zerolog.Nop())

	evidence := []models.SearchResult{
		{Type: models.ResultTypeQAPair, Question: "Support phone number?", Answer: "Call 555-123-4567", Source: "Q&A - IT"},
		{Type: models.ResultTypeDocument, Answer: "The help desk is open 9-5.", Source: "Document - IT.docx"},
		{Type: models.ResultTypeDocument, Answer: "Ask IT for a loaner laptop.", Source: "Document - IT.docx"},
	}
	history := []models.ConversationTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello, how can I help?"},
		{Role: "user", Content: "  "},
	}

	res, err := g.Generate(context.Background(), "How do I reach support?", evidence, history)
	require.NoError(t, err)
	assert.Equal(t, "Call the help desk on 555-123-4567.", res.Answer)
	assert.Equal(t, []string{"Q&A - IT", "Document - IT.docx"}, res.Sources)

	require.Len(t, model.messages, 4)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, model.messages[2].Role)
	prompt := textOf(model.messages[3])
	assert.Contains(t, prompt, "[Q&A - IT]\nQ: Support phone number?\nA: Call 555-123-4567")
	assert.Contains(t, prompt, "Question: How do I reach support?")
}

func TestGenerate_Errors(t *testing.T) {
	boom := errors.New("provider timeout")
	g := NewGenerator(&fakeModel{err: boom}, nil, zerolog.Nop())
	_, err := g.Generate(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, boom)

	g = NewGenerator(&fakeModel{content: "<think>nothing</think>  "}, nil, zerolog.Nop())
	_, err = g.Generate(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestSummarize(t *testing.T) {
	model := &fakeModel{content: "```json\n{\"summary\": \" Installation guide for field staff. \", \"keywords\": [\"wiring\", \"Wiring\", \"safety\", \" \", \"fusebox\"]}\n```"}
	s := NewSummarizer(model, nil, zerolog.Nop())

	res, err := s.Summarize(context.Background(), "some document text")
	require.NoError(t, err)
	assert.Equal(t, "Installation guide for field staff.", res.Summary)
	assert.Equal(t, []string{"wiring", "safety", "fusebox"}, res.Keywords)
	assert.Contains(t, textOf(model.messages[0]), "some document text")
}

func TestParseSummary(t *testing.T) {
	res, err := parseSummary(`{"summary":"ok","keywords":["a","b","c","d","e","f","g","h","i","j","k","l"]}`)
	require.NoError(t, err)
	assert.Len(t, res.Keywords, maxKeywords)

	_, err = parseSummary("not json")
	assert.Error(t, err)

	_, err = parseSummary(`{"summary":"  ","keywords":[]}`)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}
