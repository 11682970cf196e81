// Package cot renders chain-of-thought system prompts: who the assistant is, the steps it
// follows and how it answers.
package cot

import (
	"strings"

	"github.com/bububa/atomic-cookbook/components/systemprompt"
)

const (
	backgroundTitle = "IDENTITY and PURPOSE"
	stepsTitle      = "INTERNAL ASSISTANT STEPS"
	outputTitle     = "OUTPUT INSTRUCTIONS"
)

const (
	defaultBackground = "This is a conversation with a helpful and friendly AI assistant."
	contextInstruct   = "Always use the available additional information and context to enhance the response."
)

// Generator is Chain-of-Thought system prompt generator
type Generator struct {
	systemprompt.BaseGenerator
	background      []string
	steps           []string
	outputInstructs []string
}

var _ systemprompt.Generator = (*Generator)(nil)

func New(options ...Option) *Generator {
	ret := new(Generator)
	for _, opt := range options {
		opt(ret)
	}
	if len(ret.background) == 0 {
		ret.background = []string{defaultBackground}
	}
	ret.outputInstructs = append(ret.outputInstructs, contextInstruct)
	return ret
}

func (g *Generator) Generate() string {
	var parts []string
	for _, s := range []struct {
		title string
		lines []string
	}{
		{backgroundTitle, g.background},
		{stepsTitle, g.steps},
		{outputTitle, g.outputInstructs},
	} {
		if len(s.lines) == 0 {
			continue
		}
		parts = append(parts, "# "+s.title)
		for _, line := range s.lines {
			parts = append(parts, bullet(line))
		}
		parts = append(parts, "")
	}
	parts = append(parts, g.Context()...)
	return systemprompt.Join(parts)
}

// bullet makes line a markdown list item
func bullet(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "- ") {
		return line
	}
	return "- " + line
}
