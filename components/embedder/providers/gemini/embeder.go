package gemini

import (
	"context"
	"fmt"

	gemini "github.com/google/generative-ai-go/genai"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
)

// DefaultModel is the default gemini embedding model
const DefaultModel = "text-embedding-004"

type Embedder struct {
	*gemini.Client
	embedder.Options
	taskType gemini.TaskType
}

var _ embedder.Embedder = (*Embedder)(nil)

// New returns an embedder for retrieval documents, use SetTaskType for queries or other tasks
func New(client *gemini.Client, opts ...embedder.Option) *Embedder {
	e := &Embedder{
		Client:   client,
		taskType: gemini.TaskTypeRetrievalDocument,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderGemini), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&e.Options)
	}
	return e
}

func (p *Embedder) SetClient(clt *gemini.Client) {
	p.Client = clt
}

func (p *Embedder) SetTaskType(t gemini.TaskType) {
	p.taskType = t
}

func (p *Embedder) model() *gemini.EmbeddingModel {
	m := p.EmbeddingModel(p.Model())
	m.TaskType = p.taskType
	return m
}

func (p *Embedder) Embed(ctx context.Context, text string, embedding *embedder.Embedding, usage *components.LLMUsage) error {
	list, err := p.BatchEmbed(ctx, []string{text}, usage)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		*embedding = list[0]
	}
	return nil
}

// BatchEmbed embeds parts in one request, gemini reports no token usage
func (p *Embedder) BatchEmbed(ctx context.Context, parts []string, _ *components.LLMUsage) ([]embedder.Embedding, error) {
	m := p.model()
	batch := m.NewBatch()
	for _, part := range parts {
		batch.AddContent(gemini.Text(part))
	}
	resp, err := m.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	ret := make([]embedder.Embedding, 0, len(resp.Embeddings))
	for idx, v := range resp.Embeddings {
		if v == nil || idx >= len(parts) {
			continue
		}
		vec := make([]float64, len(v.Values))
		for i, f := range v.Values {
			vec[i] = float64(f)
		}
		ret = append(ret, embedder.Embedding{Object: parts[idx], Embedding: vec, Index: idx})
	}
	return ret, nil
}
