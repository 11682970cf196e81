package cohere

import (
	"context"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
)

// DefaultModel is the default cohere embedding model
const DefaultModel = "embed-multilingual-v3.0"

type Embedder struct {
	*cohereClient.Client

	embedder.Options
	inputType cohere.EmbedInputType
}

var _ embedder.Embedder = (*Embedder)(nil)

func (p *Embedder) SetClient(clt *cohereClient.Client) {
	p.Client = clt
}

// SetInputType sets cohere input type, search_document by default
func (p *Embedder) SetInputType(v cohere.EmbedInputType) {
	p.inputType = v
}

func New(client *cohereClient.Client, opts ...embedder.Option) *Embedder {
	i := &Embedder{
		Client:    client,
		inputType: cohere.EmbedInputTypeSearchDocument,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderCohere), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
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
	model := p.Model()
	inputType := p.inputType
	req := cohere.EmbedRequest{
		Texts:     parts,
		Model:     &model,
		InputType: &inputType,
	}
	resp, err := p.Client.Embed(ctx, &req)
	if err != nil {
		return nil, err
	}
	respV := resp.EmbeddingsFloats
	if respV == nil {
		return nil, nil
	}
	if usage != nil && respV.Meta != nil && respV.Meta.Tokens != nil {
		if v := respV.Meta.Tokens.InputTokens; v != nil {
			usage.InputTokens += int64(*v)
		}
		if v := respV.Meta.Tokens.OutputTokens; v != nil {
			usage.OutputTokens += int64(*v)
		}
	}
	ret := make([]embedder.Embedding, 0, len(respV.Embeddings))
	for idx, v := range respV.Embeddings {
		if idx >= len(parts) {
			break
		}
		ret = append(ret, embedder.Embedding{
			Object:    parts[idx],
			Embedding: v,
			Index:     idx,
		})
	}
	return ret, nil
}
