package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/newsrag/internal/models"
)

const (
	DefaultSystemTemplate  = "You are an AI news assistant that summarizes and analyzes today's Bloomberg Asia news."
	DefaultContextTemplate = "Related news:\n%s\n\nQuestion: %s"
)

// ChatModel is the part of llms.Model the chat engine relies on.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string // receives the context block and the question
}

// ChatEngine is an engine that uses an LLM to answer questions about retrieved headlines.
type ChatEngine struct {
	config ChatConfig
	llm    ChatModel
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig, model ChatModel) (*ChatEngine, error) {
	if model == nil {
		return nil, goerr.New("chat model is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, goerr.New("temperature must be between 0 and 2", goerr.V("temperature", config.Temperature))
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens < 0 {
		return nil, goerr.New("max tokens cannot be negative", goerr.V("max_tokens", config.MaxTokens))
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = DefaultSystemTemplate
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = DefaultContextTemplate
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// Messages assembles the system and user messages for one question.
func (ce *ChatEngine) Messages(newsContext, question string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(ce.config.ContextTemplate, newsContext, question)),
	}
}

// Generate answers question using newsContext as grounding.
func (ce *ChatEngine) Generate(ctx context.Context, newsContext, question string) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, ce.Messages(newsContext, question),
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", goerr.Wrap(err, "chat completion failed")
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", goerr.New("chat completion returned no choices")
	}

	return response.Choices[0].Content, nil
}

// FormatContext renders retrieved headlines as the context block of the prompt.
func FormatContext(items []models.NewsItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s (%s)", item.Title, item.Link))
	}
	return strings.Join(lines, "\n")
}
