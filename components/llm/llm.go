// Package llm wraps chat completion providers behind a single client that
// decodes assistant replies into typed schemas with instructor-go.
package llm

import (
	"context"
	"errors"

	"github.com/bububa/atomic-cookbook/components"
)

// Provider is the name of a chat completion provider
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAzure     Provider = "azure"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderCohere    Provider = "cohere"
	ProviderGemini    Provider = "gemini"
)

var (
	// ErrEmptyResponse is returned when the provider replies without content
	ErrEmptyResponse = errors.New("empty response from llm")
	// ErrInvalidOutput is returned when the reply could not be decoded into the output schema
	ErrInvalidOutput = errors.New("llm output does not match schema")
	// ErrStreamNotSupported is returned when the provider could not stream
	ErrStreamNotSupported = errors.New("llm provider does not support streaming")
)

// Request is a provider independent chat request
type Request struct {
	Model       string
	System      string
	Messages    []components.Message
	Temperature float32
	MaxTokens   int
	// JSON asks the provider to reply with a JSON object when it supports it
	JSON bool
}

// Clone returns a shallow copy with its own message slice
func (r *Request) Clone() *Request {
	ret := *r
	ret.Messages = make([]components.Message, len(r.Messages))
	copy(ret.Messages, r.Messages)
	return &ret
}

// StreamChunk is a piece of a streamed reply
type StreamChunk struct {
	Content string
	Err     error
}

// Client chats with a language model and decodes the reply into out
type Client interface {
	Provider() Provider
	Chat(ctx context.Context, req *Request, out any, resp *components.LLMResponse) error
}

// StreamClient is a Client which could stream plain text replies
type StreamClient interface {
	Client
	Stream(ctx context.Context, req *Request) (<-chan StreamChunk, error)
}
