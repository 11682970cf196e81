package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
)

func newTestEmbedder(t *testing.T, body string, got *openai.EmbeddingRequestStrings, opts ...embedder.Option) *Embedder {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return New(openai.NewClientWithConfig(cfg), opts...)
}

func TestBatchEmbed(t *testing.T) {
	var got openai.EmbeddingRequestStrings
	e := newTestEmbedder(t, `{"object":"list","model":"text-embedding-3-small","data":[
		{"object":"embedding","index":1,"embedding":[0.5,0.25]},
		{"object":"embedding","index":0,"embedding":[1,0]},
		{"object":"embedding","index":7,"embedding":[0,1]}
	],"usage":{"prompt_tokens":6,"total_tokens":6}}`, &got, embedder.WithDimensions(2))

	usage := new(components.LLMUsage)
	list, err := e.BatchEmbed(context.Background(), []string{"green curry", "pad thai"}, usage)
	require.NoError(t, err)
	assert.Equal(t, []string{"green curry", "pad thai"}, got.Input)
	assert.Equal(t, openai.EmbeddingModel(DefaultModel), got.Model)
	assert.Equal(t, 2, got.Dimensions)

	require.Len(t, list, 2)
	assert.Equal(t, "pad thai", list[0].Object)
	assert.Equal(t, 1, list[0].Index)
	assert.Equal(t, []float64{0.5, 0.25}, list[0].Embedding)
	assert.Equal(t, "green curry", list[1].Object)
	assert.Equal(t, int64(6), usage.InputTokens)
	assert.Equal(t, embedder.ProviderOpenAI, e.Provider())
}

func TestEmbed(t *testing.T) {
	var got openai.EmbeddingRequestStrings
	e := newTestEmbedder(t, `{"data":[{"index":0,"embedding":[0.1]}],"usage":{"prompt_tokens":2}}`, &got, embedder.WithModel("text-embedding-3-large"))
	var embedding embedder.Embedding
	require.NoError(t, e.Embed(context.Background(), "tom kha", &embedding, nil))
	assert.Equal(t, openai.EmbeddingModel("text-embedding-3-large"), got.Model)
	assert.Zero(t, got.Dimensions)
	assert.Equal(t, "tom kha", embedding.Object)
	assert.Equal(t, []float64{float64(float32(0.1))}, embedding.Embedding)
}

func TestEmbedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()
	cfg := openai.DefaultConfig("bad-key")
	cfg.BaseURL = srv.URL
	var embedding embedder.Embedding
	err := New(openai.NewClientWithConfig(cfg)).Embed(context.Background(), "tom kha", &embedding, nil)
	assert.ErrorContains(t, err, "invalid api key")
}
