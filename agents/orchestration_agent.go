package agents

import (
	"context"
	"fmt"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/schema"
)

// AgentSelector picks the agent for an input and returns the input passed to it
type AgentSelector[I schema.Schema] func(req *I) (ChainableAgent, any, error)

// OrchestrationAgent is an agent for orchestration
type OrchestrationAgent[I schema.Schema, O schema.Schema] struct {
	name        string
	description string
	selector    AgentSelector[I]
}

var _ ChainableAgent = (*OrchestrationAgent[schema.Input, schema.Output])(nil)

func NewOrchestrationAgent[I schema.Schema, O schema.Schema](selector AgentSelector[I]) *OrchestrationAgent[I, O] {
	return &OrchestrationAgent[I, O]{
		selector: selector,
	}
}

func (a *OrchestrationAgent[I, O]) Name() string {
	return a.name
}

func (a *OrchestrationAgent[I, O]) SetName(name string) {
	a.name = name
}

func (a *OrchestrationAgent[I, O]) Description() string {
	return a.description
}

func (a *OrchestrationAgent[I, O]) SetDescription(desc string) {
	a.description = desc
}

func (a *OrchestrationAgent[I, O]) Run(ctx context.Context, input *I, output *O, resp *components.LLMResponse) error {
	out, err := a.RunForChain(ctx, input, resp)
	if err != nil {
		return err
	}
	outO, ok := out.(*O)
	if !ok {
		return fmt.Errorf("%w: agent output %T", ErrInvalidSchema, out)
	}
	*output = *outO
	return nil
}

func (a *OrchestrationAgent[I, O]) RunForChain(ctx context.Context, input any, resp *components.LLMResponse) (any, error) {
	in, ok := input.(*I)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrInvalidSchema, input)
	}
	agent, params, err := a.selector(in)
	if err != nil {
		return nil, err
	}
	return agent.RunForChain(ctx, params, resp)
}
