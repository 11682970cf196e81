// Package rag answers questions with an agent grounded on documents found in a knowledge base
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bububa/atomic-cookbook/agents"
	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/knowledge"
	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/components/vectordb"
	"github.com/bububa/atomic-cookbook/schema"
)

// ErrNoReferences is returned when the knowledge base has nothing relevant to the query
var ErrNoReferences = errors.New("no relevant information to answer question")

type Options struct {
	name              string
	description       string
	enhanceQueryAgent agents.TypeableAgent[schema.String, schema.String]
	knowledge         *knowledge.Base
	contextGenerator  func(string, []vectordb.Document) string
}

type Option func(*Options)

func WithName(name string) Option {
	return func(r *Options) {
		r.name = name
	}
}

func WithDescription(desc string) Option {
	return func(r *Options) {
		r.description = desc
	}
}

// WithKnowledge sets the knowledge base searched for every query
func WithKnowledge(kb *knowledge.Base) Option {
	return func(r *Options) {
		r.knowledge = kb
	}
}

// WithEnhanceQueryAgent rewrites the query before searching
func WithEnhanceQueryAgent(v agents.TypeableAgent[schema.String, schema.String]) Option {
	return func(r *Options) {
		r.enhanceQueryAgent = v
	}
}

// WithContextGenerator replaces how the query and the found documents are presented to the agent
func WithContextGenerator(fn func(string, []vectordb.Document) string) Option {
	return func(r *Options) {
		r.contextGenerator = fn
	}
}

// RAG is a retrieval augmented agent
type RAG[O schema.Schema] struct {
	agent agents.TypeableAgent[schema.String, O]
	Options
}

var (
	_ agents.TypeableAgent[schema.String, schema.String] = (*RAG[schema.String])(nil)
	_ agents.StreamableAgent[schema.String]              = (*RAG[schema.String])(nil)
	_ agents.ChainableAgent                              = (*RAG[schema.String])(nil)
)

func New[O schema.Schema](agent agents.TypeableAgent[schema.String, O], opts ...Option) *RAG[O] {
	ret := &RAG[O]{
		agent: agent,
	}
	for _, opt := range opts {
		opt(&ret.Options)
	}
	if ret.contextGenerator == nil {
		ret.contextGenerator = DefaultContextGenerator
	}
	return ret
}

func (r *RAG[O]) Name() string {
	return r.name
}

func (r *RAG[O]) Description() string {
	return r.description
}

// Search finds the documents relevant to query
func (r *RAG[O]) Search(ctx context.Context, query string) ([]vectordb.Document, error) {
	if r.knowledge == nil {
		return nil, errors.New("rag: knowledge base not set")
	}
	return r.knowledge.Search(ctx, query)
}

func (r *RAG[O]) Run(ctx context.Context, query *schema.String, output *O, resp *components.LLMResponse) error {
	if resp == nil {
		resp = new(components.LLMResponse)
	}
	input, err := r.augment(ctx, query, resp)
	if err != nil {
		return err
	}
	usage := resp.Usage
	resp.Usage = nil
	err = r.agent.Run(ctx, input, output, resp)
	resp.MergeUsage(usage)
	return err
}

func (r *RAG[O]) RunForChain(ctx context.Context, query any, resp *components.LLMResponse) (any, error) {
	input, err := toQuery(query)
	if err != nil {
		return nil, err
	}
	output := new(O)
	if err := r.Run(ctx, input, output, resp); err != nil {
		return nil, err
	}
	return output, nil
}

// Stream streams the answer, the agent must be an agents.StreamableAgent
func (r *RAG[O]) Stream(ctx context.Context, query *schema.String) (<-chan llm.StreamChunk, error) {
	streamAgent, ok := r.agent.(agents.StreamableAgent[schema.String])
	if !ok {
		return nil, llm.ErrStreamNotSupported
	}
	input, err := r.augment(ctx, query, new(components.LLMResponse))
	if err != nil {
		return nil, err
	}
	return streamAgent.Stream(ctx, input)
}

// augment enhances the query, searches the knowledge base and builds the agent input
func (r *RAG[O]) augment(ctx context.Context, query *schema.String, resp *components.LLMResponse) (*schema.String, error) {
	enhancedQuery, err := r.generateEnhancedQuery(ctx, query, resp)
	if err != nil {
		return nil, err
	}
	docs, err := r.Search(ctx, enhancedQuery)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReferences, query.String())
	}
	for _, doc := range docs {
		resp.MergeUsage(doc.Usage)
	}
	return schema.NewString(r.contextGenerator(query.String(), docs)), nil
}

func (r *RAG[O]) generateEnhancedQuery(ctx context.Context, query *schema.String, resp *components.LLMResponse) (string, error) {
	if r.enhanceQueryAgent == nil {
		return query.String(), nil
	}
	var out schema.String
	enhanceResp := new(components.LLMResponse)
	if err := r.enhanceQueryAgent.Run(ctx, query, &out, enhanceResp); err != nil {
		return "", fmt.Errorf("enhance query: %w", err)
	}
	resp.MergeUsage(enhanceResp.Usage)
	return out.String(), nil
}

func toQuery(query any) (*schema.String, error) {
	switch t := query.(type) {
	case string:
		return schema.NewString(t), nil
	case schema.String:
		return &t, nil
	case *string:
		if t != nil {
			return schema.NewString(*t), nil
		}
	case *schema.String:
		if t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: input %T", agents.ErrInvalidSchema, query)
}

// DefaultContextGenerator lists the documents with their scores followed by the question
func DefaultContextGenerator(query string, docs []vectordb.Document) string {
	sb := new(strings.Builder)
	sb.WriteString("Based on the following information:\n\n")
	for i, doc := range docs {
		fmt.Fprintf(sb, "%d. %s\n", i+1, doc.Content)
		if doc.Name != "" {
			fmt.Fprintf(sb, "  - source: %s\n", doc.Name)
		}
		fmt.Fprintf(sb, "  - score: %.3f\n", doc.Score)
	}
	fmt.Fprintf(sb, "\nPlease provide a comprehensive answer to this question: %s", query)
	return sb.String()
}
