// Package openai serves llm.Client with OpenAI compatible chat completions.
// Azure, Ollama and Hermes are reached through a custom base url.
package openai

import (
	"context"
	"strings"

	"github.com/bububa/instructor-go"
	"github.com/bububa/instructor-go/instructors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
)

// Client chats through an instructor-go openai instructor
type Client struct {
	*openai.Client
	llm.Options
	provider llm.Provider
}

var _ llm.StreamClient = (*Client)(nil)

// NewClient returns an llm.Client backed by openai
func NewClient(clt *openai.Client, provider llm.Provider, opts ...llm.Option) *Client {
	if provider == "" {
		provider = llm.ProviderOpenAI
	}
	return &Client{
		Client:   clt,
		Options:  llm.NewOptions(opts...),
		provider: provider,
	}
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return c.provider
}

// chatRequest folds system messages found in history into one leading system message,
// the instructor appends the output schema to it
func (c *Client) chatRequest(req *llm.Request) *openai.ChatCompletionRequest {
	ret := &openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 1, len(req.Messages)+1),
	}
	systems := make([]string, 0, 2)
	if req.System != "" {
		systems = append(systems, req.System)
	}
	for _, msg := range req.Messages {
		if msg.Role() == components.SystemRole {
			systems = append(systems, msg.StringifiedContent())
			continue
		}
		v := new(openai.ChatCompletionMessage)
		msg.ToOpenAI(v)
		ret.Messages = append(ret.Messages, *v)
	}
	if len(systems) > 0 || req.JSON {
		ret.Messages[0] = openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(systems, "\n\n"),
		}
	} else {
		ret.Messages = ret.Messages[1:]
	}
	if req.JSON {
		ret.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return ret
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.Request, out any, resp *components.LLMResponse) error {
	return c.Options.Chat(ctx, c.provider, req, out, func(ctx context.Context, req *llm.Request, target any, opts ...instructor.Option) error {
		var res openai.ChatCompletionResponse
		opts = append(opts, instructor.WithProvider(instructor.ProviderOpenAI))
		err := instructors.FromOpenAI(c.Client, opts...).Chat(ctx, c.chatRequest(req), target, &res)
		llm.Record(resp, func(r *components.LLMResponse) {
			r.FromOpenAI(&res)
			if r.Model == "" {
				r.Model = req.Model
			}
		})
		return err
	})
}

// Stream implements llm.StreamClient interface
func (c *Client) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamChunk, error) {
	ch, err := instructors.FromOpenAI(c.Client).Stream(ctx, c.chatRequest(req), nil, nil)
	if err != nil {
		return nil, err
	}
	return llm.Pipe(ctx, ch), nil
}
