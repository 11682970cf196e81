// Package anthropic serves llm.Client with anthropic messages
package anthropic

import (
	"context"
	"strings"

	"github.com/bububa/instructor-go"
	"github.com/bububa/instructor-go/instructors"
	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
)

// DefaultMaxTokens is used when the request does not limit the reply, anthropic requires one
const DefaultMaxTokens = 4096

// Client chats through an instructor-go anthropic instructor
type Client struct {
	*anthropic.Client
	llm.Options
}

var _ llm.StreamClient = (*Client)(nil)

// NewClient returns an llm.Client backed by anthropic
func NewClient(clt *anthropic.Client, opts ...llm.Option) *Client {
	return &Client{
		Client:  clt,
		Options: llm.NewOptions(opts...),
	}
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return llm.ProviderAnthropic
}

// messagesRequest folds system messages found in history into the system prompt
func (c *Client) messagesRequest(ctx context.Context, req *llm.Request) *anthropic.MessagesRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := req.Temperature
	ret := &anthropic.MessagesRequest{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages:    make([]anthropic.Message, 0, len(req.Messages)),
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
		v := new(anthropic.Message)
		msg.ToAnthropic(ctx, v)
		ret.Messages = append(ret.Messages, *v)
	}
	ret.System = strings.Join(systems, "\n\n")
	return ret
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.Request, out any, resp *components.LLMResponse) error {
	return c.Options.Chat(ctx, c.Provider(), req, out, func(ctx context.Context, req *llm.Request, target any, opts ...instructor.Option) error {
		var res anthropic.MessagesResponse
		opts = append(opts, instructor.WithProvider(instructor.ProviderAnthropic))
		err := instructors.FromAnthropic(c.Client, opts...).Chat(ctx, c.messagesRequest(ctx, req), target, &res)
		llm.Record(resp, func(r *components.LLMResponse) {
			r.FromAnthropic(&res)
			if r.Model == "" {
				r.Model = req.Model
			}
		})
		return err
	})
}

// Stream implements llm.StreamClient interface
func (c *Client) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamChunk, error) {
	ch, err := instructors.FromAnthropic(c.Client).Stream(ctx, c.messagesRequest(ctx, req), nil, nil)
	if err != nil {
		return nil, err
	}
	return llm.Pipe(ctx, ch), nil
}
