package cot

import "github.com/bububa/atomic-cookbook/components/systemprompt"

type Option = func(g *Generator)

// WithBackground appends lines describing the assistant, a leading "- " is optional
func WithBackground(lines []string) Option {
	return func(g *Generator) {
		g.background = append(g.background, lines...)
	}
}

// WithSteps appends the steps the assistant follows before answering
func WithSteps(lines []string) Option {
	return func(g *Generator) {
		g.steps = append(g.steps, lines...)
	}
}

// WithOutputInstructs appends output instructions
func WithOutputInstructs(lines []string) Option {
	return func(g *Generator) {
		g.outputInstructs = append(g.outputInstructs, lines...)
	}
}

// WithContextProviders registers context providers rendered after the sections
func WithContextProviders(providers ...systemprompt.ContextProvider) Option {
	return func(g *Generator) {
		g.AddContextProviders(providers...)
	}
}
