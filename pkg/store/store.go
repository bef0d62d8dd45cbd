package store

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/internal/types"
	"github.com/xhad/newsrag/pkg/processor"
)

type VectorStoreConfig struct {
	DataDir   string
	IndexFile string
	ItemsFile string
	Processor types.Processor // prepares titles for embedding, defaults to processor.New()
	Logger    *slog.Logger
}

// VectorStore builds flat indexes over headline embeddings and keeps them,
// together with the headlines, as a pair of files in DataDir.
type VectorStore struct {
	config    VectorStoreConfig
	embedder  types.Embedder
	processor types.Processor
	log       *slog.Logger
}

func NewWithConfig(config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}
	if config.IndexFile == "" {
		config.IndexFile = "news.index"
	}
	if config.ItemsFile == "" {
		config.ItemsFile = "news_items.yaml"
	}
	if config.IndexFile == config.ItemsFile {
		return nil, goerr.New("index and items files must differ", goerr.V("file", config.IndexFile))
	}
	if config.Processor == nil {
		config.Processor = processor.New()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &VectorStore{
		config:    config,
		embedder:  embedder,
		processor: config.Processor,
		log:       config.Logger,
	}, nil
}

func (vs *VectorStore) IndexPath() string {
	return filepath.Join(vs.config.DataDir, vs.config.IndexFile)
}

func (vs *VectorStore) ItemsPath() string {
	return filepath.Join(vs.config.DataDir, vs.config.ItemsFile)
}

// Build embeds every headline title and returns a flat index whose row i
// belongs to items[i].
func (vs *VectorStore) Build(ctx context.Context, items []models.NewsItem) (*FlatIndex, error) {
	if len(items) == 0 {
		return nil, goerr.New("cannot build index without news items")
	}

	vectors, err := vs.embedder.EmbedBatch(ctx, vs.processor.Process(items))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed news titles", goerr.V("items", len(items)))
	}
	if len(vectors) != len(items) {
		return nil, goerr.New("embedding count does not match items",
			goerr.V("items", len(items)), goerr.V("vectors", len(vectors)))
	}

	index, err := NewFlatIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := index.Add(vectors...); err != nil {
		return nil, err
	}

	vs.log.Info("built news index", slog.Int("items", index.Size()), slog.Int("dimension", index.Dim()))
	return index, nil
}

// Persist writes the index file and then the items file. Both carry the same
// generation marker so Load can tell a matching pair from a stale one.
func (vs *VectorStore) Persist(index *FlatIndex, items []models.NewsItem) error {
	if index == nil {
		return goerr.New("cannot persist nil index")
	}
	if index.Size() != len(items) {
		return goerr.New("index size does not match items",
			goerr.V("index_size", index.Size()), goerr.V("items", len(items)))
	}

	if err := os.MkdirAll(vs.config.DataDir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create data directory", goerr.V("dir", vs.config.DataDir))
	}

	generation := uuid.New()

	if err := writeFileAtomic(vs.IndexPath(), func(w io.Writer) error {
		return writeIndex(w, index, generation)
	}); err != nil {
		return goerr.Wrap(err, "failed to persist index", goerr.V("path", vs.IndexPath()))
	}

	if err := writeFileAtomic(vs.ItemsPath(), func(w io.Writer) error {
		return writeItems(w, items, generation)
	}); err != nil {
		return goerr.Wrap(err, "failed to persist news items", goerr.V("path", vs.ItemsPath()))
	}

	vs.log.Info("persisted news index",
		slog.String("index", vs.IndexPath()),
		slog.String("items", vs.ItemsPath()),
		slog.String("generation", generation.String()))
	return nil
}

// Load reads the persisted pair. A missing file or a pair whose generation or
// size disagree yields a nil index and no error.
func (vs *VectorStore) Load() (*FlatIndex, []models.NewsItem, error) {
	for _, path := range []string{vs.IndexPath(), vs.ItemsPath()} {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				vs.log.Debug("persisted news state not found", slog.String("path", path))
				return nil, nil, nil
			}
			return nil, nil, goerr.Wrap(err, "failed to stat persisted file", goerr.V("path", path))
		}
	}

	index, generation, err := vs.loadIndex()
	if err != nil {
		return nil, nil, err
	}

	doc, err := vs.loadItems()
	if err != nil {
		return nil, nil, err
	}

	if doc.Generation != generation.String() || doc.Count != len(doc.Items) || index.Size() != len(doc.Items) {
		vs.log.Warn("persisted index and items do not match, ignoring them",
			slog.String("index_generation", generation.String()),
			slog.String("items_generation", doc.Generation),
			slog.Int("index_size", index.Size()),
			slog.Int("items", len(doc.Items)))
		return nil, nil, nil
	}

	return index, doc.Items, nil
}

func (vs *VectorStore) loadIndex() (*FlatIndex, uuid.UUID, error) {
	f, err := os.Open(vs.IndexPath())
	if err != nil {
		return nil, uuid.Nil, goerr.Wrap(err, "failed to open index", goerr.V("path", vs.IndexPath()))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, uuid.Nil, goerr.Wrap(err, "failed to stat index", goerr.V("path", vs.IndexPath()))
	}

	index, generation, err := readIndex(f, info.Size())
	if err != nil {
		return nil, uuid.Nil, goerr.Wrap(err, "failed to load index", goerr.V("path", vs.IndexPath()))
	}
	return index, generation, nil
}

func (vs *VectorStore) loadItems() (*itemsFile, error) {
	f, err := os.Open(vs.ItemsPath())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open news items", goerr.V("path", vs.ItemsPath()))
	}
	defer f.Close()

	doc, err := readItems(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load news items", goerr.V("path", vs.ItemsPath()))
	}
	return doc, nil
}

// Search returns the k headlines nearest to query, nearest first.
func Search(index *FlatIndex, items []models.NewsItem, query []float32, k int) ([]models.SearchHit, error) {
	if index == nil {
		return nil, goerr.New("index is not loaded")
	}
	if index.Size() != len(items) {
		return nil, goerr.New("index size does not match items",
			goerr.V("index_size", index.Size()), goerr.V("items", len(items)))
	}

	neighbors, err := index.Search(query, k)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		hits = append(hits, models.SearchHit{Item: items[n.Position], Distance: n.Distance})
	}
	return hits, nil
}
