package tools

import (
	"context"

	"github.com/bububa/atomic-cookbook/schema"
)

type ITool interface {
	Title() string
	Description() string
}

// Tool is a typed tool
type Tool[I schema.Schema, O schema.Schema] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// AnonymousTool is a tool which could be selected at runtime, input and output are not typed
type AnonymousTool interface {
	ITool
	RunAnonymous(context.Context, any) (any, error)
}

// MediaSink receives media generated by tools
type MediaSink interface {
	AddImage(url string)
	AddVideo(url string)
}

// Anonymous wraps a typed tool as an AnonymousTool
func Anonymous[I schema.Schema, O schema.Schema](t Tool[I, O]) AnonymousTool {
	return &anonymous[I, O]{tool: t}
}

type anonymous[I schema.Schema, O schema.Schema] struct {
	tool Tool[I, O]
}

func (a *anonymous[I, O]) Title() string {
	return a.tool.Title()
}

func (a *anonymous[I, O]) Description() string {
	return a.tool.Description()
}

func (a *anonymous[I, O]) RunAnonymous(ctx context.Context, input any) (any, error) {
	switch in := input.(type) {
	case *I:
		return a.tool.Run(ctx, in)
	case I:
		return a.tool.Run(ctx, &in)
	}
	return nil, ErrInvalidInput
}
