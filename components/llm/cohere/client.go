// Package cohere serves llm.Client with cohere chat
package cohere

import (
	"context"
	"fmt"

	"github.com/bububa/instructor-go"
	"github.com/bububa/instructor-go/instructors"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
)

// Client chats through an instructor-go cohere instructor
type Client struct {
	*cohereClient.Client
	llm.Options
}

var _ llm.StreamClient = (*Client)(nil)

// NewClient returns an llm.Client backed by cohere
func NewClient(clt *cohereClient.Client, opts ...llm.Option) *Client {
	return &Client{
		Client:  clt,
		Options: llm.NewOptions(opts...),
	}
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return llm.ProviderCohere
}

// chatRequest sends the last message as the chat message, the others as chat history
func (c *Client) chatRequest(req *llm.Request) *cohere.ChatRequest {
	temperature := float64(req.Temperature)
	ret := &cohere.ChatRequest{
		Temperature: &temperature,
	}
	if req.Model != "" {
		ret.Model = &req.Model
	}
	if req.MaxTokens > 0 {
		ret.MaxTokens = &req.MaxTokens
	}
	if req.System != "" {
		ret.Preamble = &req.System
	}
	lastIdx := len(req.Messages) - 1
	for idx, msg := range req.Messages {
		if idx == lastIdx {
			ret.Message = msg.StringifiedContent()
			break
		}
		v := new(cohere.Message)
		msg.ToCohere(v)
		ret.ChatHistory = append(ret.ChatHistory, v)
	}
	return ret
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.Request, out any, resp *components.LLMResponse) error {
	return c.Options.Chat(ctx, c.Provider(), req, out, func(ctx context.Context, req *llm.Request, target any, opts ...instructor.Option) (err error) {
		// instructor-go v1.2.9 dereferences the missing usage of a failed cohere call
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("cohere chat failed: %v", r)
			}
		}()
		res := new(cohere.NonStreamedChatResponse)
		opts = append(opts, instructor.WithProvider(instructor.ProviderCohere))
		err = instructors.FromCohere(c.Client, opts...).Chat(ctx, c.chatRequest(req), target, res)
		llm.Record(resp, func(r *components.LLMResponse) {
			r.FromCohere(res)
			if r.Model == "" {
				r.Model = req.Model
			}
		})
		return err
	})
}

// Stream implements llm.StreamClient interface
func (c *Client) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamChunk, error) {
	chatReq := c.chatRequest(req)
	ch, err := instructors.FromCohere(c.Client).Stream(ctx, &cohere.ChatStreamRequest{
		Message:     chatReq.Message,
		Model:       chatReq.Model,
		Preamble:    chatReq.Preamble,
		ChatHistory: chatReq.ChatHistory,
		Temperature: chatReq.Temperature,
		MaxTokens:   chatReq.MaxTokens,
	}, nil, nil)
	if err != nil {
		return nil, err
	}
	return llm.Pipe(ctx, ch), nil
}
