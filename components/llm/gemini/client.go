// Package gemini serves llm.Client with google gemini
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/bububa/instructor-go"
	"github.com/bububa/instructor-go/instructors"
	geminiInstructor "github.com/bububa/instructor-go/instructors/gemini"
	"github.com/google/generative-ai-go/genai"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
)

// Client chats through an instructor-go gemini instructor
type Client struct {
	*genai.Client
	llm.Options
}

var _ llm.Client = (*Client)(nil)

// NewClient returns an llm.Client backed by gemini
func NewClient(clt *genai.Client, opts ...llm.Option) *Client {
	return &Client{
		Client:  clt,
		Options: llm.NewOptions(opts...),
	}
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return llm.ProviderGemini
}

// chatRequest sends the last message to a chat session holding the previous ones as history
func (c *Client) chatRequest(ctx context.Context, req *llm.Request) (*geminiInstructor.Request, error) {
	systems := make([]string, 0, 2)
	if req.System != "" {
		systems = append(systems, req.System)
	}
	history := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role() == components.SystemRole {
			systems = append(systems, msg.StringifiedContent())
			continue
		}
		v := new(genai.Content)
		msg.ToGemini(ctx, v)
		history = append(history, v)
	}
	if len(history) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	ret := &geminiInstructor.Request{
		Model:   req.Model,
		Parts:   history[len(history)-1].Parts,
		History: history[:len(history)-1],
	}
	if len(systems) > 0 {
		ret.System = genai.NewUserContent(genai.Text(strings.Join(systems, "\n\n")))
	}
	return ret, nil
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.Request, out any, resp *components.LLMResponse) error {
	return c.Options.Chat(ctx, c.Provider(), req, out, func(ctx context.Context, req *llm.Request, target any, opts ...instructor.Option) (err error) {
		chatReq, err := c.chatRequest(ctx, req)
		if err != nil {
			return err
		}
		// instructor-go v1.2.9 dereferences the missing usage of a failed gemini call
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("gemini chat failed: %v", r)
			}
		}()
		res := new(genai.GenerateContentResponse)
		opts = append(opts, instructor.WithProvider(instructor.ProviderGemini))
		err = instructors.FromGemini(c.Client, opts...).Chat(ctx, chatReq, target, res)
		llm.Record(resp, func(r *components.LLMResponse) {
			r.FromGemini(res)
			r.Model = req.Model
		})
		return err
	})
}
