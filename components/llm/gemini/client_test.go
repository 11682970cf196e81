package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/schema"
)

type content struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction"`
	GenerationConfig  struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req *generateRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		req := new(generateRequest)
		require.NoError(t, json.NewDecoder(r.Body).Decode(req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	clt, err := genai.NewClient(context.Background(), option.WithAPIKey("test-key"), option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { clt.Close() })
	return NewClient(clt)
}

func writeContent(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}],"role":"model"},"index":0}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2,"totalTokenCount":6}}`, text)
}

func TestChatText(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, req *generateRequest) {
		assert.Equal(t, "text/plain", req.GenerationConfig.ResponseMimeType)
		require.NotNil(t, req.SystemInstruction)
		require.Len(t, req.SystemInstruction.Parts, 1)
		assert.Equal(t, "be nice\n\nsearch result: sunny", req.SystemInstruction.Parts[0].Text)
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role)
		assert.Equal(t, "user", req.Contents[2].Role)
		require.Len(t, req.Contents[2].Parts, 1)
		assert.Equal(t, "and tomorrow?", req.Contents[2].Parts[0].Text)
		writeContent(w, "rain")
	})
	var out schema.String
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:  "gemini-1.5-flash",
		System: "be nice",
		Messages: []components.Message{
			*components.NewMessage(components.SystemRole, schema.String("search result: sunny")),
			*components.NewMessage(components.UserRole, schema.String("weather today?")),
			*components.NewMessage(components.AssistantRole, schema.String("sunny")),
			*components.NewMessage(components.UserRole, schema.String("and tomorrow?")),
		},
	}, &out, resp)
	require.NoError(t, err)
	assert.Equal(t, "rain", out.String())
	assert.Equal(t, llm.ProviderGemini, clt.Provider())
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(4), resp.Usage.InputTokens)
	assert.Equal(t, int64(2), resp.Usage.OutputTokens)
}

func TestChatStructuredRetry(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *generateRequest) {
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.Nil(t, req.SystemInstruction)
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Equal(t, "hi", req.Contents[0].Parts[0].Text)
		assert.Contains(t, req.Contents[0].Parts[1].Text, "chat_message")
		if calls.Add(1) == 1 {
			writeContent(w, `{"chat_message": ""}`)
			return
		}
		writeContent(w, `{"chat_message": "fixed"}`)
	})
	out := new(schema.Output)
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "gemini-1.5-flash",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, out, resp)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out.ChatMessage)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(8), resp.Usage.InputTokens)
}

func TestChatNoMessages(t *testing.T) {
	clt := NewClient(nil)
	var out schema.String
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "gemini-1.5-flash",
		Messages: []components.Message{*components.NewMessage(components.SystemRole, schema.String("only context"))},
	}, &out, nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestChatServerError(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *generateRequest) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})
	var out schema.String
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "gemini-1.5-flash",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, &out, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
