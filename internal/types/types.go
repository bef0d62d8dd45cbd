package types

import (
	"context"

	"github.com/xhad/newsrag/internal/models"
)

// Core interfaces
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.NewsItem, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, context string, question string) (string, error)
}

type Processor interface {
	Process(items []models.NewsItem) []string
}
