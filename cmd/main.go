package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"github.com/xhad/newsrag/internal/logger"
	cfgPkg "github.com/xhad/newsrag/pkg/config"
	"github.com/xhad/newsrag/pkg/llm"
	"github.com/xhad/newsrag/pkg/processor"
	"github.com/xhad/newsrag/pkg/rag"
	"github.com/xhad/newsrag/pkg/scraper"
	"github.com/xhad/newsrag/pkg/store"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "newsrag",
	Short: "Ask questions about today's Bloomberg Asia headlines",
	Long: `newsrag fetches the Bloomberg Asia front page, indexes its headlines as
embeddings and answers questions using the closest headlines as context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			color.Red("Error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// errReported marks failures already shown to the user.
var errReported = errors.New("reported")

type app struct {
	config  *cfgPkg.Config
	log     *slog.Logger
	service *rag.Service
}

// newApp loads configuration, wires every component and reads the persisted
// index when there is one.
func newApp(ctx context.Context) (*app, error) {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(); len(errs) > 0 {
		color.Red("Invalid configuration:")
		for _, e := range errs {
			color.Red("  - %s", e.Error())
		}
		return nil, errReported
	}

	log := logger.New(logLevel)
	slog.SetDefault(log)

	azure := llm.AzureConfig{
		Endpoint:            config.Azure.Endpoint,
		APIKey:              config.Azure.APIKey,
		APIVersion:          config.Azure.APIVersion,
		EmbeddingDeployment: config.Azure.EmbeddingDeployment,
		ChatDeployment:      config.Azure.ChatDeployment,
		Timeout:             config.Azure.Timeout,
	}

	embeddingClient, err := llm.NewAzureEmbeddingClient(azure)
	if err != nil {
		return nil, err
	}
	chatClient, err := llm.NewAzureChatClient(azure)
	if err != nil {
		return nil, err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		RateLimit: config.Embedder.RateLimit,
		Logger:    log,
	}, embeddingClient)
	if err != nil {
		return nil, err
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature:    config.Chat.Temperature,
		MaxTokens:      config.Chat.MaxTokens,
		SystemTemplate: config.Chat.SystemPrompt,
	}, chatClient)
	if err != nil {
		return nil, err
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		DataDir:   config.Store.DataDir,
		IndexFile: config.Store.IndexFile,
		ItemsFile: config.Store.ItemsFile,
		Processor: processor.NewWithConfig(processor.ProcessorConfig{
			MaxTitleLength: config.Processor.MaxTitleLength,
			Lowercase:      config.Processor.Lowercase,
		}),
		Logger: log,
	}, embedder)
	if err != nil {
		return nil, err
	}

	fetcher, err := scraper.NewWithConfig(scraper.ScraperConfig{
		URL:                config.Scraper.URL,
		Origin:             config.Scraper.Origin,
		UserAgent:          config.Scraper.UserAgent,
		InsecureSkipVerify: config.Scraper.InsecureSkipVerify,
		PrimarySelector:    config.Scraper.PrimarySelector,
		FallbackPath:       config.Scraper.FallbackPath,
		MaxItems:           config.Scraper.MaxItems,
		Timeout:            config.Scraper.Timeout,
		Logger:             log,
	})
	if err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetriever(embedder, config.Retrieval.TopK)
	if err != nil {
		return nil, err
	}

	service, err := rag.NewService(rag.ServiceConfig{
		Fetcher:   fetcher,
		Store:     vectorStore,
		Retriever: retriever,
		Generator: chatEngine,
		Logger:    log,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize news service")
	}

	// unreadable files behave like no files; the next refresh replaces them
	if _, err := service.Load(ctx); err != nil {
		log.Warn("ignoring persisted news index", slog.Any("err", err))
	}

	return &app{
		config:  config,
		log:     log,
		service: service,
	}, nil
}
