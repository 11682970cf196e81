package agents

import (
	"context"
	"fmt"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// ToolAgent asks a first agent for the tool params T, runs the tool,
// then answers the input with a second agent which sees the tool result
type ToolAgent[I schema.Schema, T schema.Schema, O schema.Schema] struct {
	start *Agent[I, T]
	end   *Agent[I, O]
	tool  tools.AnonymousTool
}

var _ ChainableAgent = (*ToolAgent[schema.Input, schema.String, schema.Output])(nil)

// NewToolAgent returns a new ToolAgent instance, both agents share the options
func NewToolAgent[I schema.Schema, T schema.Schema, O schema.Schema](options ...Option) *ToolAgent[I, T, O] {
	return &ToolAgent[I, T, O]{
		start: NewAgent[I, T](options...),
		end:   NewAgent[I, O](options...),
	}
}

func (t *ToolAgent[I, T, O]) SetTool(tool tools.AnonymousTool) *ToolAgent[I, T, O] {
	t.tool = tool
	return t
}

func (t *ToolAgent[I, T, O]) Name() string {
	return t.end.Name()
}

func (t *ToolAgent[I, T, O]) Description() string {
	return t.end.Description()
}

// Planner returns the agent producing the tool params
func (t *ToolAgent[I, T, O]) Planner() *Agent[I, T] {
	return t.start
}

// Responder returns the agent answering with the tool result
func (t *ToolAgent[I, T, O]) Responder() *Agent[I, O] {
	return t.end
}

func (t *ToolAgent[I, T, O]) ResetMemory() {
	t.start.ResetMemory()
	t.end.ResetMemory()
}

// Run runs the chat agent with the given user input synchronously.
func (t *ToolAgent[I, T, O]) Run(ctx context.Context, userInput *I, output *O, resp *components.LLMResponse) error {
	if resp == nil {
		resp = new(components.LLMResponse)
	}
	params := new(T)
	planResp := new(components.LLMResponse)
	if err := t.start.Run(ctx, userInput, params, planResp); err != nil {
		return err
	}
	if t.tool != nil {
		result, err := t.tool.RunAnonymous(ctx, params)
		if err != nil {
			return fmt.Errorf("tool %s: %w", t.tool.Title(), err)
		}
		outO, ok := result.(schema.Schema)
		if !ok {
			return fmt.Errorf("%w: tool output %T", ErrInvalidSchema, result)
		}
		t.end.NewMessage(components.SystemRole, schema.String(fmt.Sprintf("%s result: %s", t.tool.Title(), schema.Stringify(outO))))
	}
	err := t.end.Run(ctx, userInput, output, resp)
	resp.MergeUsage(planResp.Usage)
	return err
}

// RunForChain runs the chat agent with the given user input for chain.
func (t *ToolAgent[I, T, O]) RunForChain(ctx context.Context, userInput any, resp *components.LLMResponse) (any, error) {
	in, ok := userInput.(*I)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrInvalidSchema, userInput)
	}
	out := new(O)
	if err := t.Run(ctx, in, out, resp); err != nil {
		return nil, err
	}
	return out, nil
}
