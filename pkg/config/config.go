package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

type AzureConfig struct {
	Endpoint            string        `yaml:"endpoint"`
	APIKey              string        `yaml:"api_key"`
	APIVersion          string        `yaml:"api_version"`
	EmbeddingDeployment string        `yaml:"embedding_deployment"`
	ChatDeployment      string        `yaml:"chat_deployment"`
	Timeout             time.Duration `yaml:"timeout"`
}

type ScraperConfig struct {
	URL                string        `yaml:"url"`
	Origin             string        `yaml:"origin"`
	UserAgent          string        `yaml:"user_agent"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	PrimarySelector    string        `yaml:"primary_selector"`
	FallbackPath       string        `yaml:"fallback_path"`
	MaxItems           int           `yaml:"max_items"`
	Timeout            time.Duration `yaml:"timeout"`
}

type EmbedderConfig struct {
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
}

type ChatConfig struct {
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
}

type StoreConfig struct {
	DataDir   string `yaml:"data_dir"`
	IndexFile string `yaml:"index_file"`
	ItemsFile string `yaml:"items_file"`
}

type ProcessorConfig struct {
	MaxTitleLength int  `yaml:"max_title_length"` // in runes, 0 = unlimited
	Lowercase      bool `yaml:"lowercase"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Azure     AzureConfig     `yaml:"azure"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chat      ChatConfig      `yaml:"chat"`
	Store     StoreConfig     `yaml:"store"`
	Processor ProcessorConfig `yaml:"processor"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`

	// environment values that could not be parsed, reported by Validate
	envErrors []ValidationError
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/newsrag/config.yaml"),
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Azure.Timeout == 0 {
		config.Azure.Timeout = 60 * time.Second
	}

	if config.Scraper.URL == "" {
		config.Scraper.URL = "https://www.bloomberg.com/asia"
	}
	if config.Scraper.UserAgent == "" {
		config.Scraper.UserAgent = "Mozilla/5.0"
	}
	if config.Scraper.PrimarySelector == "" {
		config.Scraper.PrimarySelector = `a[data-tracking-context="section_headline"]`
	}
	if config.Scraper.FallbackPath == "" {
		config.Scraper.FallbackPath = "/news/articles/"
	}
	if config.Scraper.MaxItems == 0 {
		config.Scraper.MaxItems = 30
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 30 * time.Second
	}

	if config.Chat.Temperature == 0 {
		config.Chat.Temperature = 0.2
	}
	if config.Chat.MaxTokens == 0 {
		config.Chat.MaxTokens = 2000
	}

	if config.Store.DataDir == "" {
		config.Store.DataDir = "data"
	}
	if config.Store.IndexFile == "" {
		config.Store.IndexFile = "news.index"
	}
	if config.Store.ItemsFile == "" {
		config.Store.ItemsFile = "news_items.yaml"
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		config.Azure.Endpoint = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" {
		config.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_VERSION"); v != "" {
		config.Azure.APIVersion = v
	}
	if v := os.Getenv("EMBEDDING_DEPLOY"); v != "" {
		config.Azure.EmbeddingDeployment = v
	}
	if v := os.Getenv("CHAT_DEPLOY"); v != "" {
		config.Azure.ChatDeployment = v
	}
	if v := os.Getenv("NEWSRAG_URL"); v != "" {
		config.Scraper.URL = v
	}
	if v := os.Getenv("NEWSRAG_DATA_DIR"); v != "" {
		config.Store.DataDir = v
	}
	if v := os.Getenv("NEWSRAG_INSECURE_SKIP_VERIFY"); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			config.envErrors = append(config.envErrors, ValidationError{
				Field:   "scraper.insecure_skip_verify",
				Message: "NEWSRAG_INSECURE_SKIP_VERIFY must be a boolean, got " + strconv.Quote(v),
			})
		} else {
			config.Scraper.InsecureSkipVerify = insecure
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
}

// IndexPath is the location of the serialized vector index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Store.DataDir, c.Store.IndexFile)
}

// ItemsPath is the location of the serialized headline list.
func (c *Config) ItemsPath() string {
	return filepath.Join(c.Store.DataDir, c.Store.ItemsFile)
}
