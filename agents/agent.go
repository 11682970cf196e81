// Package agents coordinates a language model with memory, tools, knowledge and storage
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/agents/storage"
	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/components/systemprompt"
	"github.com/bububa/atomic-cookbook/components/systemprompt/cot"
	"github.com/bububa/atomic-cookbook/schema"
)

// ErrInvalidSchema is returned when an agent receives or produces an unexpected schema
var ErrInvalidSchema = errors.New("invalid agent schema")

type IAgent interface {
	Name() string
	Description() string
}

// TypeableAgent is an agent with typed input and output
type TypeableAgent[I schema.Schema, O schema.Schema] interface {
	IAgent
	Run(context.Context, *I, *O, *components.LLMResponse) error
}

// StreamableAgent is an agent which streams its reply as text
type StreamableAgent[I schema.Schema] interface {
	IAgent
	Stream(context.Context, *I) (<-chan llm.StreamChunk, error)
}

// ChainableAgent is an agent which could be used in a Chain or selected at runtime
type ChainableAgent interface {
	IAgent
	RunForChain(context.Context, any, *components.LLMResponse) (any, error)
}

// Agent class for chat agents.
// This class provides the core functionality for handling chat interactions, including managing memory,
// generating system prompts, and obtaining responses from a language model.
type Agent[I schema.Schema, O schema.Schema] struct {
	Config
	// initialMemory is the state ResetMemory goes back to
	initialMemory *components.Memory
	references    *systemprompt.Static
	media         Media
	// session is the stored session, loaded on the first run
	session     *storage.Session
	sessionOnce sync.Once
	sessionErr  error
	startHook   func(context.Context, *Agent[I, O], *I)
	endHook     func(context.Context, *Agent[I, O], *I, *O, *components.LLMResponse)
	errorHook   func(context.Context, *Agent[I, O], *I, *components.LLMResponse, error)
}

var (
	_ TypeableAgent[schema.Input, schema.Output] = (*Agent[schema.Input, schema.Output])(nil)
	_ StreamableAgent[schema.Input]              = (*Agent[schema.Input, schema.Output])(nil)
	_ ChainableAgent                             = (*Agent[schema.Input, schema.Output])(nil)
)

// NewAgent initializes the Agent
func NewAgent[I schema.Schema, O schema.Schema](options ...Option) *Agent[I, O] {
	ret := new(Agent[I, O])
	for _, opt := range options {
		opt(&ret.Config)
	}
	if ret.memory == nil {
		ret.memory = components.NewMemory(0)
	}
	if ret.systemPromptGenerator == nil {
		ret.systemPromptGenerator = cot.New()
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	if ret.storage != nil && ret.sessionID == "" {
		ret.sessionID = storage.NewSessionID()
	}
	if ret.knowledge != nil {
		ret.references = referencesProvider(ret.systemPromptGenerator)
	}
	ret.initialMemory = components.NewMemory(0)
	ret.initialMemory.Copy(ret.memory)
	return ret
}

// referencesProvider returns the references provider of g, registering one when g has none.
// Agents sharing a generator share its references.
func referencesProvider(g systemprompt.Generator) *systemprompt.Static {
	if provider, err := g.ContextProvider(ReferencesTitle); err == nil {
		if static, ok := provider.(*systemprompt.Static); ok {
			return static
		}
		g.RemoveContextProviders(ReferencesTitle)
	}
	ret := systemprompt.NewStatic(ReferencesTitle, "")
	g.AddContextProviders(ret)
	return ret
}

// ResetMemory resets the memory to its initial state
func (a *Agent[I, O]) ResetMemory() {
	a.memory.Copy(a.initialMemory)
}

func (a *Agent[I, O]) SetClient(clt llm.Client) {
	a.client = clt
}

func (a *Agent[I, O]) SetMemory(m *components.Memory) {
	a.memory = m
}

func (a *Agent[I, O]) SetSystemPromptGenerator(g systemprompt.Generator) {
	a.systemPromptGenerator = g
}

func (a *Agent[I, O]) SetModel(model string) {
	a.model = model
}

func (a *Agent[I, O]) SetTemperature(temperature float32) {
	a.temperature = temperature
}

func (a *Agent[I, O]) SetMaxTokens(maxTokens int) {
	a.maxTokens = maxTokens
}

func (a *Agent[I, O]) SetName(name string) {
	a.name = name
}

func (a *Agent[I, O]) SetStartHook(fn func(context.Context, *Agent[I, O], *I)) {
	a.startHook = fn
}

func (a *Agent[I, O]) SetEndHook(fn func(context.Context, *Agent[I, O], *I, *O, *components.LLMResponse)) {
	a.endHook = fn
}

func (a *Agent[I, O]) SetErrorHook(fn func(context.Context, *Agent[I, O], *I, *components.LLMResponse, error)) {
	a.errorHook = fn
}

// AddImage adds an image generated by a tool, Agent is a tools.MediaSink
func (a *Agent[I, O]) AddImage(url string) {
	a.media.AddImage(url)
}

// AddVideo adds a video generated by a tool
func (a *Agent[I, O]) AddVideo(url string) {
	a.media.AddVideo(url)
}

// Images returns images generated during runs
func (a *Agent[I, O]) Images() []string {
	return a.media.Images()
}

// Videos returns videos generated during runs
func (a *Agent[I, O]) Videos() []string {
	return a.media.Videos()
}

// Run runs the chat agent with the given user input synchronously.
func (a *Agent[I, O]) Run(ctx context.Context, userInput *I, output *O, resp *components.LLMResponse) error {
	if resp == nil {
		resp = new(components.LLMResponse)
	}
	if fn := a.startHook; fn != nil {
		fn(ctx, a, userInput)
	}
	req, err := a.prepare(ctx, userInput)
	if err == nil {
		err = a.client.Chat(ctx, req, output, resp)
	}
	if err != nil {
		return a.fail(ctx, userInput, resp, err)
	}
	a.memory.NewMessage(components.AssistantRole, *output)
	if err := a.saveSession(ctx); err != nil {
		return a.fail(ctx, userInput, resp, err)
	}
	if fn := a.endHook; fn != nil {
		fn(ctx, a, userInput, output, resp)
	}
	return nil
}

// Stream runs the agent and streams its reply as text, the client must be a llm.StreamClient.
// The reply is added to the memory when the stream ends.
func (a *Agent[I, O]) Stream(ctx context.Context, userInput *I) (<-chan llm.StreamChunk, error) {
	if fn := a.startHook; fn != nil {
		fn(ctx, a, userInput)
	}
	streamer, ok := a.client.(llm.StreamClient)
	if !ok {
		return nil, a.fail(ctx, userInput, nil, llm.ErrStreamNotSupported)
	}
	req, err := a.prepare(ctx, userInput)
	if err != nil {
		return nil, a.fail(ctx, userInput, nil, err)
	}
	ch, err := streamer.Stream(ctx, req)
	if err != nil {
		return nil, a.fail(ctx, userInput, nil, err)
	}
	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		var sb strings.Builder
		for chunk := range ch {
			if chunk.Err != nil {
				a.fail(ctx, userInput, nil, chunk.Err)
			} else {
				sb.WriteString(chunk.Content)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		a.memory.NewMessage(components.AssistantRole, schema.String(sb.String()))
		if err := a.saveSession(ctx); err != nil {
			a.logger.Error("save session failed", zap.String("session_id", a.sessionID), zap.Error(err))
		}
	}()
	return out, nil
}

// RunForChain runs the chat agent with the given user input for chain.
func (a *Agent[I, O]) RunForChain(ctx context.Context, userInput any, resp *components.LLMResponse) (any, error) {
	in, ok := userInput.(*I)
	if !ok {
		return nil, fmt.Errorf("%w: input %T", ErrInvalidSchema, userInput)
	}
	out := new(O)
	if err := a.Run(ctx, in, out, resp); err != nil {
		return nil, err
	}
	return out, nil
}

// prepare loads the session, refreshes knowledge references, records the user input
// and builds the llm request
func (a *Agent[I, O]) prepare(ctx context.Context, userInput *I) (*llm.Request, error) {
	if a.client == nil {
		return nil, errors.New("agent has no llm client")
	}
	if err := a.loadSession(ctx); err != nil {
		return nil, err
	}
	if userInput != nil {
		a.updateReferences(ctx, *userInput)
		a.memory.NewTurn()
		a.memory.NewMessage(components.UserRole, *userInput)
	}
	return &llm.Request{
		Model:       a.model,
		System:      a.SystemPrompt(),
		Messages:    a.memory.History(),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}, nil
}

func (a *Agent[I, O]) fail(ctx context.Context, userInput *I, resp *components.LLMResponse, err error) error {
	a.logger.Error("agent run failed", zap.String("agent", a.name), zap.Error(err))
	if fn := a.errorHook; fn != nil {
		fn(ctx, a, userInput, resp, err)
	}
	return err
}

// updateReferences searches the knowledge base with the user input,
// a failed search leaves the references empty
func (a *Agent[I, O]) updateReferences(ctx context.Context, userInput schema.Schema) {
	if a.knowledge == nil {
		return
	}
	refs, err := a.knowledge.References(ctx, schema.Stringify(userInput))
	if err != nil {
		a.logger.Warn("search knowledge failed", zap.String("agent", a.name), zap.Error(err))
	}
	a.references.SetInfo(refs)
}

// loadSession restores the memory from storage once
func (a *Agent[I, O]) loadSession(ctx context.Context) error {
	if a.storage == nil {
		return nil
	}
	a.sessionOnce.Do(func() {
		session, err := a.storage.Read(ctx, a.sessionID)
		if errors.Is(err, storage.ErrSessionNotFound) {
			a.logger.Debug("new session", zap.String("session_id", a.sessionID))
			return
		}
		if err != nil {
			a.sessionErr = fmt.Errorf("read session %s: %w", a.sessionID, err)
			return
		}
		a.session = session
		a.memory.Restore(session.Memory)
		a.logger.Debug("session restored", zap.String("session_id", a.sessionID), zap.Int("messages", len(session.Memory)))
	})
	return a.sessionErr
}

func (a *Agent[I, O]) saveSession(ctx context.Context) error {
	if a.storage == nil {
		return nil
	}
	if a.session == nil {
		a.session = &storage.Session{
			ID:        a.sessionID,
			AgentName: a.name,
			UserID:    a.userID,
		}
	}
	a.session.Memory = a.memory.Records()
	if err := a.storage.Upsert(ctx, a.session); err != nil {
		return fmt.Errorf("save session %s: %w", a.sessionID, err)
	}
	return nil
}

// Session returns the stored session, nil before the first run
func (a *Agent[I, O]) Session() *storage.Session {
	return a.session
}

func (a *Agent[I, O]) NewMessage(role components.MessageRole, content schema.Schema) *components.Message {
	return a.memory.NewMessage(role, content)
}

// SystemPromptContextProvider returns agent systemPromptGenerator's context provider
func (a *Agent[I, O]) SystemPromptContextProvider(title string) (systemprompt.ContextProvider, error) {
	return a.systemPromptGenerator.ContextProvider(title)
}

// RegisterSystemPromptContextProvider registers a new context provider
func (a *Agent[I, O]) RegisterSystemPromptContextProvider(provider systemprompt.ContextProvider) {
	a.systemPromptGenerator.AddContextProviders(provider)
}

// UnregisterSystemPromptContextProvider Unregisters an existing context provider.
func (a *Agent[I, O]) UnregisterSystemPromptContextProvider(title string) {
	a.systemPromptGenerator.RemoveContextProviders(title)
}

// SystemPrompt returns the system prompt, the description comes first and the instructions last
func (a *Agent[I, O]) SystemPrompt() string {
	var parts []string
	if a.description != "" {
		parts = append(parts, "# DESCRIPTION", a.description, "")
	}
	if prompt := a.systemPromptGenerator.Generate(); prompt != "" {
		parts = append(parts, prompt, "")
	}
	instructions := a.instructions
	if a.markdown {
		instructions = append(instructions[:len(instructions):len(instructions)], MarkdownInstruction)
	}
	if len(instructions) > 0 {
		parts = append(parts, "# INSTRUCTIONS")
		for _, v := range instructions {
			parts = append(parts, "- "+v)
		}
	}
	return systemprompt.Join(parts)
}
