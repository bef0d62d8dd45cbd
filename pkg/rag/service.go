package rag

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/internal/types"
	"github.com/xhad/newsrag/pkg/llm"
	"github.com/xhad/newsrag/pkg/store"
)

var (
	ErrNoNews        = goerr.New("no news found")
	ErrNoIndex       = goerr.New("news index not loaded, refresh first")
	ErrEmptyQuestion = goerr.New("question is empty")
)

type ServiceConfig struct {
	Fetcher   types.Fetcher
	Store     *store.VectorStore
	Retriever *Retriever
	Generator types.Generator
	Logger    *slog.Logger
}

// RefreshResult summarizes one successful refresh.
type RefreshResult struct {
	Items     int
	Dimension int
	Duration  time.Duration
}

// Service owns the current index and headlines. Readers share the pair under
// a read lock; a refresh builds a complete replacement before swapping it in.
type Service struct {
	config ServiceConfig
	log    *slog.Logger

	refreshMu sync.Mutex

	mu    sync.RWMutex
	index *store.FlatIndex
	items []models.NewsItem
}

func NewService(config ServiceConfig) (*Service, error) {
	switch {
	case config.Fetcher == nil:
		return nil, goerr.New("fetcher is required")
	case config.Store == nil:
		return nil, goerr.New("vector store is required")
	case config.Retriever == nil:
		return nil, goerr.New("retriever is required")
	case config.Generator == nil:
		return nil, goerr.New("generator is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Service{
		config: config,
		log:    config.Logger,
	}, nil
}

// Load replaces the in-memory state with the persisted one. It reports false
// when nothing usable is on disk.
func (s *Service) Load(ctx context.Context) (bool, error) {
	index, items, err := s.config.Store.Load()
	if err != nil {
		return false, goerr.Wrap(err, "failed to load persisted news")
	}
	if index == nil {
		s.log.InfoContext(ctx, "no persisted news index found")
		return false, nil
	}

	s.swap(index, items)
	s.log.InfoContext(ctx, "loaded news index", slog.Int("items", len(items)), slog.Int("dimension", index.Dim()))
	return true, nil
}

// Refresh fetches the page, rebuilds the index and persists it. On any error
// both the files and the in-memory state are left as they were.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()

	items, err := s.config.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch news")
	}
	if len(items) == 0 {
		return nil, ErrNoNews
	}
	s.log.InfoContext(ctx, "fetched news", slog.Int("items", len(items)))

	index, err := s.config.Store.Build(ctx, items)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build news index")
	}

	if err := s.config.Store.Persist(index, items); err != nil {
		return nil, goerr.Wrap(err, "failed to save news index")
	}

	s.swap(index, items)

	return &RefreshResult{
		Items:     len(items),
		Dimension: index.Dim(),
		Duration:  time.Since(start),
	}, nil
}

// Answer retrieves the headlines closest to question and asks the generator
// to answer from them.
func (s *Service) Answer(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s.mu.RLock()
	index, items := s.index, s.items
	s.mu.RUnlock()

	if index == nil {
		return nil, ErrNoIndex
	}

	hits, err := s.config.Retriever.Retrieve(ctx, question, index, items, 0)
	if err != nil {
		return nil, err
	}
	sources := models.Items(hits)
	s.log.DebugContext(ctx, "retrieved news", slog.Int("hits", len(hits)))

	text, err := s.config.Generator.Generate(ctx, llm.FormatContext(sources), question)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate answer")
	}

	return &models.Answer{Text: text, Sources: sources}, nil
}

// Items returns a copy of the current headlines.
func (s *Service) Items() []models.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.items == nil {
		return []models.NewsItem{}
	}
	return slices.Clone(s.items)
}

// Ready reports whether an index is loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

func (s *Service) swap(index *store.FlatIndex, items []models.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
	s.items = items
}
