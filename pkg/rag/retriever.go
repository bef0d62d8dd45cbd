package rag

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/internal/types"
	"github.com/xhad/newsrag/pkg/store"
)

const DefaultTopK = 3

// Retriever embeds a question and looks up the nearest stored headlines.
type Retriever struct {
	embedder types.Embedder
	topK     int
}

func NewRetriever(embedder types.Embedder, topK int) (*Retriever, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if topK < 0 {
		return nil, goerr.New("top k cannot be negative", goerr.V("top_k", topK))
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, topK: topK}, nil
}

// TopK is the number of headlines returned when Retrieve is called with k <= 0.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve returns up to k headlines nearest to query, nearest first. The query
// is embedded on every call.
func (r *Retriever) Retrieve(ctx context.Context, query string, index *store.FlatIndex, items []models.NewsItem, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		k = r.topK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	hits, err := store.Search(index, items, vector, k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search news index", goerr.V("k", k))
	}
	return hits, nil
}
