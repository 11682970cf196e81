package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
)

// DefaultModel is the default openai embedding model
const DefaultModel = string(openai.SmallEmbedding3)

type Embedder struct {
	*openai.Client

	embedder.Options
}

var _ embedder.Embedder = (*Embedder)(nil)

func (p *Embedder) SetClient(clt *openai.Client) {
	p.Client = clt
}

func New(client *openai.Client, opts ...embedder.Option) *Embedder {
	i := &Embedder{
		Client: client,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderOpenAI), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Embedder) request(parts []string) openai.EmbeddingRequestStrings {
	req := openai.EmbeddingRequestStrings{
		Input: parts,
		Model: openai.EmbeddingModel(p.Model()),
	}
	if dim := p.Dimensions(); dim > 0 {
		req.Dimensions = dim
	}
	return req
}

func (p *Embedder) Embed(ctx context.Context, text string, embedding *embedder.Embedding, usage *components.LLMUsage) error {
	list, err := p.BatchEmbed(ctx, []string{text}, usage)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	*embedding = list[0]
	return nil
}

func (p *Embedder) BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([]embedder.Embedding, error) {
	resp, err := p.CreateEmbeddings(ctx, p.request(parts))
	if err != nil {
		return nil, err
	}
	if usage != nil {
		usage.InputTokens += int64(resp.Usage.PromptTokens)
	}
	ret := make([]embedder.Embedding, 0, len(resp.Data))
	for _, v := range resp.Data {
		if v.Index < 0 || v.Index >= len(parts) {
			continue
		}
		embeddings := make([]float64, 0, len(v.Embedding))
		for _, e := range v.Embedding {
			embeddings = append(embeddings, float64(e))
		}
		ret = append(ret, embedder.Embedding{
			Object:    parts[v.Index],
			Embedding: embeddings,
			Index:     v.Index,
		})
	}
	return ret, nil
}
