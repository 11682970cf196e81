package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/schema"
)

type messagesRequest struct {
	Model     string `json:"model"`
	System    string `json:"system"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req *messagesRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		req := new(messagesRequest)
		require.NoError(t, json.NewDecoder(r.Body).Decode(req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return NewClient(anthropic.NewClient("test-key", anthropic.WithBaseURL(srv.URL+"/v1")))
}

func writeMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[{"type":"text","text":%q}],"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":2}}`, text)
}

func TestChatText(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, req *messagesRequest) {
		assert.Equal(t, "claude-3-5-haiku-latest", req.Model)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Equal(t, "be nice\n\nsearch result: sunny", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		require.Len(t, req.Messages[0].Content, 1)
		assert.Equal(t, "hi", req.Messages[0].Content[0].Text)
		writeMessage(w, "hello there")
	})
	var out schema.String
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:  "claude-3-5-haiku-latest",
		System: "be nice",
		Messages: []components.Message{
			*components.NewMessage(components.SystemRole, schema.String("search result: sunny")),
			*components.NewMessage(components.UserRole, schema.String("hi")),
		},
	}, &out, resp)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out.String())
	assert.Equal(t, llm.ProviderAnthropic, clt.Provider())
	assert.Equal(t, "claude-3-5-haiku-latest", resp.Model)
	assert.Equal(t, int64(4), resp.Usage.InputTokens)
	assert.Equal(t, int64(2), resp.Usage.OutputTokens)
}

func TestChatStructuredRetry(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *messagesRequest) {
		assert.Contains(t, req.System, "#OUTPUT SCHEMA")
		assert.Contains(t, req.System, "chat_message")
		assert.Equal(t, 512, req.MaxTokens)
		if calls.Add(1) == 1 {
			writeMessage(w, `{"chat_message": ""}`)
			return
		}
		writeMessage(w, `{"chat_message": "fixed"}`)
	})
	out := new(schema.Output)
	resp := new(components.LLMResponse)
	err := clt.Chat(context.Background(), &llm.Request{
		Model:     "claude-3-5-haiku-latest",
		System:    "be nice",
		MaxTokens: 512,
		Messages:  []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, out, resp)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out.ChatMessage)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(8), resp.Usage.InputTokens)
}

func TestChatServerError(t *testing.T) {
	var calls atomic.Int32
	clt := newTestClient(t, func(w http.ResponseWriter, req *messagesRequest) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})
	var out schema.String
	err := clt.Chat(context.Background(), &llm.Request{
		Model:    "claude-3-5-haiku-latest",
		Messages: []components.Message{*components.NewMessage(components.UserRole, schema.String("hi"))},
	}, &out, nil)
	assert.ErrorContains(t, err, "Overloaded")
	assert.Equal(t, int32(1), calls.Load())
}
