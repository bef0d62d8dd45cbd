package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/pkg/llm"
)

type fakeChatModel struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	reply    string
	err      error
	empty    bool
}

func (f *fakeChatModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.Len(t, msg.Parts, 1)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestNewWithConfig(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{}, nil)
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: 3}, &fakeChatModel{})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1}, &fakeChatModel{})
	assert.Error(t, err)

	engine, err := llm.NewWithConfig(llm.ChatConfig{}, &fakeChatModel{})
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestGenerate(t *testing.T) {
	model := &fakeChatModel{reply: "Markets are up."}
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
	require.NoError(t, err)

	newsContext := "- Nikkei hits record (https://www.bloomberg.com/news/articles/a)"
	answer, err := engine.Generate(context.Background(), newsContext, "What happened in Tokyo?")
	require.NoError(t, err)
	assert.Equal(t, "Markets are up.", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llm.DefaultSystemTemplate, textOf(t, model.messages[0]))
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t,
		"Related news:\n"+newsContext+"\n\nQuestion: What happened in Tokyo?",
		textOf(t, model.messages[1]))

	assert.Equal(t, 0.2, model.options.Temperature)
	assert.Equal(t, 2000, model.options.MaxTokens)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, &fakeChatModel{err: errors.New("401 unauthorized")})
		require.NoError(t, err)

		_, err = engine.Generate(context.Background(), "", "q")
		assert.ErrorContains(t, err, "401 unauthorized")
	})

	t.Run("no choices", func(t *testing.T) {
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, &fakeChatModel{empty: true})
		require.NoError(t, err)

		_, err = engine.Generate(context.Background(), "", "q")
		assert.Error(t, err)
	})
}

func TestFormatContext(t *testing.T) {
	items := []models.NewsItem{
		{Title: "Nikkei hits record", Link: "https://www.bloomberg.com/news/articles/a"},
		{Title: "Yen slides", Link: "https://www.bloomberg.com/news/articles/b"},
	}

	assert.Equal(t,
		"- Nikkei hits record (https://www.bloomberg.com/news/articles/a)\n- Yen slides (https://www.bloomberg.com/news/articles/b)",
		llm.FormatContext(items))
	assert.Equal(t, "", llm.FormatContext(nil))
}
