package cohere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	cohereClient "github.com/cohere-ai/cohere-go/v2/client"
	cohereOption "github.com/cohere-ai/cohere-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/schema"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Preamble    string  `json:"preamble"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	ChatHistory []struct {
		Role    string `json:"role"`
		Message string `json:"message"`
	} `json:"chat_history"`
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req *chatRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		req := new(chatRequest)
		require.NoError(t, json.NewDecoder(r.Body).Decode(req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return NewClient(cohereClient.NewClient(cohereOption.WithToken("test-key"), cohereOption.WithBaseURL(srv.URL)))
}

func writeChat(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"text":%q,"generation_id":"gen-1","meta":{"tokens":{"input_tokens":5,"output_tokens":3}}}`, text)
}

func TestChatText(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, req *chatRequest) {
		assert.Equal(t, "command-r", req.Model)
		assert.Equal(t, "be nice", req.Preamble)
		assert.Equal(t, 256, req.MaxTokens)
		assert.Equal(t, "and tomorrow?", req.Message)
		require.Len(t, req.ChatHistory, 2)
		assert.Equal(t, "USER", req.ChatHistory[0].Role)
		assert.Equal(t, "weather today?", req.ChatHistory[0].Message)
		assert.Equal(t, "CHATBOT", req.ChatHistory[1].Role)
		writeChat(w, "rain")
	})
	var out schema.String
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:     "command-r",
		System:    "be nice",
		MaxTokens: 256,
		Messages: []components.Message{
			*components.NewMessage(components.UserRole, schema.String("weather today?")),
			*components.NewMessage(components.AssistantRole, schema.String("sunny")),
			*components.NewMessage(components.UserRole, schema.String("and tomorrow?")),
		},
	}, &out, resp)
	require.NoError(t, err)
	assert.Equal(t, "rain", out.String())
	assert.Equal(t, llm.ProviderCohere, clt.Provider())
	assert.Equal(t, "command-r", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(5), resp.Usage.InputTokens)
	assert.Equal(t, int64(3), resp.Usage.OutputTokens)
}

func TestChatStructuredRetry(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *chatRequest) {
		assert.Contains(t, req.Preamble, "#OUTPUT SCHEMA")
		assert.Contains(t, req.Preamble, "chat_message")
		if calls.Add(1) == 1 {
			writeChat(w, "sorry, no json")
			return
		}
		writeChat(w, `{"chat_message": "fixed"}`)
	})
	out := new(schema.Output)
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "command-r",
		System:   "be nice",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, out, resp)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out.ChatMessage)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
}

func TestChatServerError(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *chatRequest) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"invalid model"}`)
	})
	var out schema.String
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "command-x",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, &out, nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
