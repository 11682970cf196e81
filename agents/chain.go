package agents

import (
	"context"
	"fmt"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/schema"
)

// Chain runs agents one after another, each output is the input of the next agent
type Chain[I schema.Schema, O schema.Schema] struct {
	name        string
	description string
	agents      []ChainableAgent
}

var _ ChainableAgent = (*Chain[schema.Input, schema.Output])(nil)

// NewChain returns a new Chain instance
func NewChain[I schema.Schema, O schema.Schema](agents ...ChainableAgent) *Chain[I, O] {
	return &Chain[I, O]{
		agents: agents,
	}
}

func (c *Chain[I, O]) Name() string {
	return c.name
}

func (c *Chain[I, O]) SetName(name string) *Chain[I, O] {
	c.name = name
	return c
}

func (c *Chain[I, O]) Description() string {
	return c.description
}

func (c *Chain[I, O]) SetDescription(desc string) *Chain[I, O] {
	c.description = desc
	return c
}

// Run runs the chained agents with the given user input synchronously.
// The responses of every agent are returned, also when a step fails.
func (c *Chain[I, O]) Run(ctx context.Context, input *I, output *O) ([]components.LLMResponse, error) {
	responses := make([]components.LLMResponse, 0, len(c.agents))
	var (
		in  any = input
		out any
	)
	for _, agent := range c.agents {
		resp := new(components.LLMResponse)
		ret, err := agent.RunForChain(ctx, in, resp)
		responses = append(responses, *resp)
		if err != nil {
			return responses, fmt.Errorf("chain step %s: %w", agent.Name(), err)
		}
		in = ret
		out = ret
	}
	outO, ok := out.(*O)
	if !ok {
		return responses, fmt.Errorf("%w: chain output %T", ErrInvalidSchema, out)
	}
	*output = *outO
	return responses, nil
}

// RunForChain runs the chain as a step of another chain, usage of every step is merged into resp
func (c *Chain[I, O]) RunForChain(ctx context.Context, input any, resp *components.LLMResponse) (any, error) {
	in, ok := input.(*I)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrInvalidSchema, input)
	}
	out := new(O)
	responses, err := c.Run(ctx, in, out)
	if resp != nil {
		for _, v := range responses {
			resp.MergeUsage(v.Usage)
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
