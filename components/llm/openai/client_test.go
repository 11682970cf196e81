package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/schema"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return NewClient(openai.NewClientWithConfig(cfg), llm.ProviderOpenAI)
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
		Usage: openai.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	})
}

func TestChatText(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Nil(t, req.ResponseFormat)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		writeCompletion(w, "hello there")
	})
	var out schema.String
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "gpt-4o",
		System:   "be nice",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, &out, resp)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out.String())
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, int64(3), resp.Usage.InputTokens)
}

func TestChatStructuredRetry(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "#OUTPUT SCHEMA")
		assert.Contains(t, req.Messages[0].Content, "chat_message")
		if calls.Add(1) == 1 {
			writeCompletion(w, `{"chat_message": ""}`)
			return
		}
		writeCompletion(w, "```json\n{\"chat_message\": \"fixed\"}\n```")
	})
	out := new(schema.Output)
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "gpt-4o",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, out, resp)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out.ChatMessage)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(6), resp.Usage.InputTokens)
}

func TestChatKeepsUsage(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "again")
	})
	resp := &components.LLMResponse{Usage: &components.LLMUsage{InputTokens: 7, OutputTokens: 1}}
	var out schema.String
	require.NoError(t, clt.Chat(context.Background(), &llm.Request{
		Model:    "gpt-4o",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, &out, resp))
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	assert.Equal(t, int64(3), resp.Usage.OutputTokens)
}

func TestChatStructuredGivesUp(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(w, "not json at all")
	})
	out := new(schema.Output)
	err := clt.Chat(context.Background(), &llm.Request{Model: "gpt-4o"}, out, nil)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatEmptyReply(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "  ")
	})
	var out schema.String
	err := NewClient(clt.Client, llm.ProviderOllama, llm.WithMaxRetries(0)).Chat(context.Background(), &llm.Request{Model: "llama3"}, &out, nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestChatServerError(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})
	var out schema.String
	err := clt.Chat(context.Background(), &llm.Request{Model: "gpt-4o"}, &out, nil)
	assert.ErrorContains(t, err, "overloaded")
	assert.Equal(t, int32(1), calls.Load())
}

func TestStream(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "lo"} {
			chunk := openai.ChatCompletionStreamResponse{
				ID: "chatcmpl-2",
				Choices: []openai.ChatCompletionStreamChoice{
					{Delta: openai.ChatCompletionStreamChoiceDelta{Content: part}},
				},
			}
			bs, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", bs)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	ch, err := clt.Stream(context.Background(), &llm.Request{Model: "gpt-4o"})
	require.NoError(t, err)
	var sb strings.Builder
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		sb.WriteString(chunk.Content)
	}
	assert.Equal(t, "Hello", sb.String())
}
