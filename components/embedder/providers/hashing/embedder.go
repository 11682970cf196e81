// Package hashing provides an offline embedder which hashes words into a fixed size vector.
// Texts sharing words get similar vectors, which is enough for tests and local demos.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
	"github.com/bububa/atomic-cookbook/components/embedder/splitter"
)

// DefaultDimensions of the hashed vectors
const DefaultDimensions = 256

type Embedder struct {
	embedder.Options
}

var _ embedder.Embedder = (*Embedder)(nil)

func New(opts ...embedder.Option) *Embedder {
	i := new(Embedder)
	opts = append([]embedder.Option{
		embedder.WithProvider(embedder.ProviderHashing),
		embedder.WithModel("fnv"),
		embedder.WithDimensions(DefaultDimensions),
	}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

// Vector returns the normalized hashed bag of words of text
func (p *Embedder) Vector(text string) ([]float64, int) {
	dim := p.Dimensions()
	if dim <= 0 {
		dim = DefaultDimensions
	}
	vec := make([]float64, dim)
	words := splitter.Words(strings.ToLower(text))
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, len(words)
}

func (p *Embedder) Embed(_ context.Context, text string, embedding *embedder.Embedding, usage *components.LLMUsage) error {
	vec, tokens := p.Vector(text)
	embedding.Object = text
	embedding.Embedding = vec
	embedding.Index = 0
	if usage != nil {
		usage.InputTokens += int64(tokens)
	}
	return nil
}

func (p *Embedder) BatchEmbed(_ context.Context, parts []string, usage *components.LLMUsage) ([]embedder.Embedding, error) {
	ret := make([]embedder.Embedding, 0, len(parts))
	for idx, part := range parts {
		vec, tokens := p.Vector(part)
		if usage != nil {
			usage.InputTokens += int64(tokens)
		}
		ret = append(ret, embedder.Embedding{
			Object:    part,
			Embedding: vec,
			Index:     idx,
		})
	}
	return ret, nil
}
