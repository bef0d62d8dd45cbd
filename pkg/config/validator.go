package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	errors := append([]ValidationError(nil), c.envErrors...)

	// Required Azure OpenAI settings, normally supplied through the environment
	required := []struct {
		field string
		env   string
		value string
	}{
		{"azure.endpoint", "AZURE_OPENAI_ENDPOINT", c.Azure.Endpoint},
		{"azure.api_key", "AZURE_OPENAI_API_KEY", c.Azure.APIKey},
		{"azure.api_version", "AZURE_OPENAI_API_VERSION", c.Azure.APIVersion},
		{"azure.embedding_deployment", "EMBEDDING_DEPLOY", c.Azure.EmbeddingDeployment},
		{"azure.chat_deployment", "CHAT_DEPLOY", c.Azure.ChatDeployment},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, ValidationError{
				Field:   r.field,
				Message: fmt.Sprintf("%s is required", r.env),
			})
		}
	}

	if c.Azure.Endpoint != "" && !isHTTPURL(c.Azure.Endpoint) {
		errors = append(errors, ValidationError{
			Field:   "azure.endpoint",
			Message: "invalid endpoint URL",
		})
	}

	// Validate Scraper config
	if !isHTTPURL(c.Scraper.URL) {
		errors = append(errors, ValidationError{
			Field:   "scraper.url",
			Message: "invalid news page URL",
		})
	}

	if c.Scraper.Origin != "" && !isHTTPURL(c.Scraper.Origin) {
		errors = append(errors, ValidationError{
			Field:   "scraper.origin",
			Message: "invalid origin URL",
		})
	}

	if c.Scraper.MaxItems < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.max_items",
			Message: "max_items must be positive",
		})
	}

	if c.Embedder.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedder.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	// Validate Chat config
	if c.Chat.MaxTokens < 1 || c.Chat.MaxTokens > 16384 {
		errors = append(errors, ValidationError{
			Field:   "chat.max_tokens",
			Message: "max_tokens must be between 1 and 16384",
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "chat.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Processor.MaxTitleLength < 0 {
		errors = append(errors, ValidationError{
			Field:   "processor.max_title_length",
			Message: "max_title_length cannot be negative",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Store.IndexFile == c.Store.ItemsFile {
		errors = append(errors, ValidationError{
			Field:   "store.items_file",
			Message: "index_file and items_file must differ",
		})
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
