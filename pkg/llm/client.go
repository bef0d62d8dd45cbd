package llm

import (
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/llms/openai"
)

// AzureConfig is the immutable connection setting shared by the embedding and chat clients.
type AzureConfig struct {
	Endpoint            string
	APIKey              string
	APIVersion          string
	EmbeddingDeployment string
	ChatDeployment      string
	Timeout             time.Duration
	HTTPClient          *http.Client // optional, overrides Timeout
}

func (c AzureConfig) validate() error {
	missing := []string{}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if c.APIVersion == "" {
		missing = append(missing, "api_version")
	}
	if len(missing) > 0 {
		return goerr.New("incomplete Azure OpenAI config", goerr.V("missing", strings.Join(missing, ",")))
	}
	return nil
}

func (c AzureConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c AzureConfig) newClient(deployment string) (*openai.LLM, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if deployment == "" {
		return nil, goerr.New("Azure OpenAI deployment name is required")
	}

	client, err := openai.New(
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithBaseURL(c.Endpoint),
		openai.WithToken(c.APIKey),
		openai.WithAPIVersion(c.APIVersion),
		openai.WithModel(deployment),
		openai.WithEmbeddingModel(deployment),
		openai.WithHTTPClient(c.httpClient()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize Azure OpenAI client", goerr.V("deployment", deployment))
	}
	return client, nil
}

// NewAzureEmbeddingClient returns a client bound to the embedding deployment.
func NewAzureEmbeddingClient(c AzureConfig) (*openai.LLM, error) {
	return c.newClient(c.EmbeddingDeployment)
}

// NewAzureChatClient returns a client bound to the chat deployment.
func NewAzureChatClient(c AzureConfig) (*openai.LLM, error) {
	return c.newClient(c.ChatDeployment)
}
