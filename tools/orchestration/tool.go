package orchestration

import (
	"context"

	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools"
)

// ToolSelector picks the tool for an input and returns the params passed to it
type ToolSelector[I schema.Schema] func(req *I) (tools.AnonymousTool, any, error)

// Tool is orchestration tool for tools selector
type Tool[I schema.Schema] struct {
	tools.Config
	selector ToolSelector[I]
}

var _ tools.AnonymousTool = (*Tool[schema.String])(nil)

func New[I schema.Schema](selector ToolSelector[I], opts ...tools.Option) *Tool[I] {
	return &Tool[I]{
		Config:   tools.NewConfig("OrchestrationTool", opts...),
		selector: selector,
	}
}

// RunAnonymous runs the tool selected for input
func (t *Tool[I]) RunAnonymous(ctx context.Context, input any) (any, error) {
	in, ok := input.(*I)
	if !ok {
		return nil, tools.ErrInvalidInput
	}
	t.OnStart(ctx, t, input)
	tool, params, err := t.selector(in)
	if err != nil {
		t.OnError(ctx, t, input, err)
		return nil, err
	}
	ret, err := tool.RunAnonymous(ctx, params)
	if err != nil {
		t.OnError(ctx, t, input, err)
		return nil, err
	}
	t.OnEnd(ctx, t, input, ret)
	return ret, nil
}
