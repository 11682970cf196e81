// Package llmtest serves scripted chat completions to the openai llm client in tests
package llmtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	openaiLLM "github.com/bububa/atomic-cookbook/components/llm/openai"
)

// Provider is the provider name of the scripted client
const Provider llm.Provider = "scripted"

// Completer is an in process OpenAI compatible endpoint.
// It replies with scripted texts in order, an empty reply once they run out, and records every request.
type Completer struct {
	replies  []string
	requests []*llm.Request
	mu       sync.Mutex
}

var _ http.RoundTripper = (*Completer)(nil)

// New returns a Completer replying with replies in order
func New(replies ...string) *Completer {
	return &Completer{replies: replies}
}

// Client returns an openai llm client talking to the completer
func (c *Completer) Client(opts ...llm.Option) *openaiLLM.Client {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = "http://llmtest.local/v1"
	cfg.HTTPClient = &http.Client{Transport: c}
	return openaiLLM.NewClient(openai.NewClientWithConfig(cfg), Provider, opts...)
}

// RoundTrip implements http.RoundTripper interface
func (c *Completer) RoundTrip(r *http.Request) (*http.Response, error) {
	defer r.Body.Close()
	var chatReq openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		return reply(r, http.StatusBadRequest, "application/json", []byte(`{"error":{"message":"invalid request"}}`)), nil
	}
	content := c.next(&chatReq)
	if chatReq.Stream {
		return reply(r, http.StatusOK, "text/event-stream", streamBody(content)), nil
	}
	bs, err := json.Marshal(openai.ChatCompletionResponse{
		ID:    "chatcmpl-scripted",
		Model: chatReq.Model,
		Choices: []openai.ChatCompletionChoice{
			{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			},
		},
		Usage: openai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
	if err != nil {
		return nil, err
	}
	return reply(r, http.StatusOK, "application/json", bs), nil
}

// streamBody streams the content word by word
func streamBody(content string) []byte {
	var buf bytes.Buffer
	for _, w := range strings.SplitAfter(content, " ") {
		bs, _ := json.Marshal(openai.ChatCompletionStreamResponse{
			ID: "chatcmpl-scripted",
			Choices: []openai.ChatCompletionStreamChoice{
				{Delta: openai.ChatCompletionStreamChoiceDelta{Content: w}},
			},
		})
		fmt.Fprintf(&buf, "data: %s\n\n", bs)
	}
	buf.WriteString("data: [DONE]\n\n")
	return buf.Bytes()
}

func reply(r *http.Request, status int, contentType string, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{contentType}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}

func (c *Completer) next(chatReq *openai.ChatCompletionRequest) string {
	req := &llm.Request{
		Model:       chatReq.Model,
		Temperature: chatReq.Temperature,
		MaxTokens:   chatReq.MaxTokens,
		JSON:        chatReq.ResponseFormat != nil && chatReq.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	systems := make([]string, 0, 1)
	for _, msg := range chatReq.Messages {
		if msg.Role == openai.ChatMessageRoleSystem {
			systems = append(systems, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, components.MessageFromOpenAI(msg))
	}
	req.System = strings.Join(systems, "\n\n")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return ""
	}
	content := c.replies[0]
	c.replies = c.replies[1:]
	return content
}

// Requests returns the recorded requests
func (c *Completer) Requests() []*llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*llm.Request(nil), c.requests...)
}

// LastRequest returns the last recorded request, nil before the first call
func (c *Completer) LastRequest() *llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}
