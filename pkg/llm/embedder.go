package llm

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"
)

// EmbedderConfig represents the configuration for an Embedder.
type EmbedderConfig struct {
	RateLimit float64 // requests per second, 0 = unlimited
	Logger    *slog.Logger
}

// Embedder turns text into vectors through a remote embedding service.
// The service is called once per text; EmbedBatch keeps the batch shape so a
// client that accepts many inputs per request can be swapped in later.
type Embedder struct {
	config    EmbedderConfig
	client    embeddings.EmbedderClient
	limiter   *rate.Limiter
	dimension atomic.Int64
}

func NewEmbedderWithConfig(config EmbedderConfig, client embeddings.EmbedderClient) (*Embedder, error) {
	if client == nil {
		return nil, goerr.New("embedding client is required")
	}
	if config.RateLimit < 0 {
		return nil, goerr.New("rate limit cannot be negative", goerr.V("rate_limit", config.RateLimit))
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "embedding rate limiter aborted")
	}

	vectors, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding")
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, goerr.New("unexpected embedding response", goerr.V("vectors", len(vectors)))
	}

	vec := vectors[0]
	e.dimension.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

// EmbedBatch embeds texts one request at a time, in order. The first failure
// aborts the batch and no partial result is returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, goerr.Wrap(err, "embedding batch aborted", goerr.V("position", i), goerr.V("total", len(texts)))
		}
		vectors = append(vectors, vec)
	}

	e.config.Logger.Debug("embedded texts", slog.Int("count", len(vectors)), slog.Int("dimension", e.Dimensions()))
	return vectors, nil
}

// Dimensions reports the vector size seen in the first response, or 0 before any call.
func (e *Embedder) Dimensions() int {
	return int(e.dimension.Load())
}
