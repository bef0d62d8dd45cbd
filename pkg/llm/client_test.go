package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/newsrag/pkg/llm"
)

func azureConfig(endpoint string) llm.AzureConfig {
	return llm.AzureConfig{
		Endpoint:            endpoint,
		APIKey:              "test-key",
		APIVersion:          "2024-02-01",
		EmbeddingDeployment: "embed-deploy",
		ChatDeployment:      "chat-deploy",
	}
}

func TestAzureClientRequiresConfig(t *testing.T) {
	cfg := azureConfig("https://example.openai.azure.com")
	cfg.APIKey = ""
	_, err := llm.NewAzureChatClient(cfg)
	assert.Error(t, err)

	cfg = azureConfig("https://example.openai.azure.com")
	cfg.EmbeddingDeployment = ""
	_, err = llm.NewAzureEmbeddingClient(cfg)
	assert.Error(t, err)
}

func TestAzureEmbeddingClient(t *testing.T) {
	var path, version string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		version = r.URL.Query().Get("api-version")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125]}],"model":"embed-deploy","usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	client, err := llm.NewAzureEmbeddingClient(azureConfig(server.URL))
	require.NoError(t, err)

	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{}, client)
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "Nikkei hits record")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vec)
	assert.True(t, strings.HasSuffix(path, "/embeddings"), path)
	assert.Contains(t, path, "embed-deploy")
	assert.Equal(t, "2024-02-01", version)
}

func TestAzureChatClient(t *testing.T) {
	var body map[string]any
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"chat-deploy","choices":[{"index":0,"message":{"role":"assistant","content":"Stocks rose."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer server.Close()

	client, err := llm.NewAzureChatClient(azureConfig(server.URL))
	require.NoError(t, err)

	engine, err := llm.NewWithConfig(llm.ChatConfig{}, client)
	require.NoError(t, err)

	answer, err := engine.Generate(context.Background(), "- Stocks rise (https://x)", "Summarize")
	require.NoError(t, err)
	assert.Equal(t, "Stocks rose.", answer)
	assert.True(t, strings.HasSuffix(path, "/chat/completions"), path)
	assert.Contains(t, path, "chat-deploy")
	assert.Equal(t, 0.2, body["temperature"])
}
