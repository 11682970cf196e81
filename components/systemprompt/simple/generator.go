// Package simple renders a fixed system prompt
package simple

import (
	"strings"

	"github.com/bububa/atomic-cookbook/components/systemprompt"
)

// Generator renders its paragraphs followed by the context providers
type Generator struct {
	systemprompt.BaseGenerator
	paragraphs []string
}

var _ systemprompt.Generator = (*Generator)(nil)

type Option = func(g *Generator)

// WithParagraphs appends paragraphs separated by a blank line
func WithParagraphs(paragraphs ...string) Option {
	return func(g *Generator) {
		g.paragraphs = append(g.paragraphs, paragraphs...)
	}
}

func WithContextProviders(providers ...systemprompt.ContextProvider) Option {
	return func(g *Generator) {
		g.AddContextProviders(providers...)
	}
}

func New(content string, options ...Option) *Generator {
	ret := new(Generator)
	if content = strings.TrimSpace(content); content != "" {
		ret.paragraphs = []string{content}
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

func (g *Generator) Generate() string {
	parts := make([]string, 0, len(g.paragraphs)*2)
	for _, p := range g.paragraphs {
		parts = append(parts, p, "")
	}
	parts = append(parts, g.Context()...)
	return systemprompt.Join(parts)
}
