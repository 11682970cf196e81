package agents

import (
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/agents/storage"
	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/knowledge"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/components/systemprompt"
)

// MarkdownInstruction is added to the system prompt of markdown agents
const MarkdownInstruction = "Use markdown to format your answers."

// ReferencesTitle is the title of the context provider holding knowledge references
const ReferencesTitle = "References"

// Config represents general agents configuration
type Config struct {
	// client Client for interacting with the language model
	client llm.Client
	//	memory  Memory component for storing chat history.
	memory *components.Memory
	//	systemPromptGenerator Component for generating system prompts.
	systemPromptGenerator systemprompt.Generator
	// model llm model
	model string
	// temperature Temperature for response generation, typically ranging from 0 to 1.
	temperature float32
	// maxTokens Maximum number of tokens allowed in the response
	maxTokens int
	// name is Agent name presentation
	name        string
	description string
	// instructions are appended to the system prompt
	instructions []string
	markdown     bool
	// knowledge is searched with the user input before each run
	knowledge *knowledge.Base
	// storage persists the memory under sessionID
	storage   storage.Storage
	sessionID string
	userID    string
	logger    *zap.Logger
}

type Option func(c *Config)

func WithClient(clt llm.Client) Option {
	return func(c *Config) {
		c.client = clt
	}
}

func WithMemory(m *components.Memory) Option {
	return func(c *Config) {
		c.memory = m
	}
}

func WithSystemPromptGenerator(g systemprompt.Generator) Option {
	return func(c *Config) {
		c.systemPromptGenerator = g
	}
}

func WithModel(model string) Option {
	return func(c *Config) {
		c.model = model
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Config) {
		c.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) {
		c.maxTokens = maxTokens
	}
}

func WithName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}

func WithDescription(desc string) Option {
	return func(c *Config) {
		c.description = desc
	}
}

func WithInstructions(instructions ...string) Option {
	return func(c *Config) {
		c.instructions = append(c.instructions, instructions...)
	}
}

// WithMarkdown asks the model to format answers in markdown
func WithMarkdown(markdown bool) Option {
	return func(c *Config) {
		c.markdown = markdown
	}
}

// WithKnowledge adds references found in the knowledge base to the system prompt
func WithKnowledge(kb *knowledge.Base) Option {
	return func(c *Config) {
		c.knowledge = kb
	}
}

// WithStorage restores and persists the memory
func WithStorage(s storage.Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithSessionID sets the storage session id, a random id is used when empty
func WithSessionID(id string) Option {
	return func(c *Config) {
		c.sessionID = id
	}
}

func WithUserID(id string) Option {
	return func(c *Config) {
		c.userID = id
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

func (c Config) Client() llm.Client {
	return c.client
}

func (c Config) Model() string {
	return c.model
}

func (c Config) Name() string {
	return c.name
}

func (c Config) Description() string {
	return c.description
}

func (c Config) SessionID() string {
	return c.sessionID
}

func (c Config) UserID() string {
	return c.userID
}

func (c Config) Memory() *components.Memory {
	return c.memory
}

func (c Config) Logger() *zap.Logger {
	return c.logger
}
