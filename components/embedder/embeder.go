package embedder

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bububa/atomic-cookbook/components"
)

// ErrVectorLengthMismatch is returned when two vectors have different dimensions
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

type Embedder interface {
	Provider() Provider
	Model() string
	// Dimensions returns the configured embedding dimensions, 0 if unknown
	Dimensions() int
	Embed(context.Context, string, *Embedding, *components.LLMUsage) error
	BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([]Embedding, error)
}

// EmbedChunks processes a slice of text chunks and generates embeddings for each one.
// Returns an error if any chunk fails to embed properly.
func EmbedChunks(ctx context.Context, embedder Embedder, chunks []Chunk, usage *components.LLMUsage) ([]EmbeddedChunk, error) {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}

	ret, err := embedder.BatchEmbed(ctx, parts, usage)
	if err != nil {
		return nil, err
	}
	embeddedChunks := make([]EmbeddedChunk, 0, len(ret))
	for _, v := range ret {
		if v.Index < 0 || v.Index >= len(chunks) {
			return nil, fmt.Errorf("embedding index %d out of range", v.Index)
		}
		embeddedChunks = append(embeddedChunks, EmbeddedChunk{
			Embedding: v,
			Chunk:     &chunks[v.Index],
		})
	}
	return embeddedChunks, nil
}

// Base64 is base64 encoded embedding string.
type Base64 string

// Decode decodes base64 encoded string into a slice of floats.
func (s Base64) Decode() (*Embedding, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, err
	}

	if len(decoded)%8 != 0 {
		return nil, fmt.Errorf("invalid base64 encoded string length")
	}

	floats := make([]float64, len(decoded)/8)

	for i := range floats {
		bits := binary.LittleEndian.Uint64(decoded[i*8 : (i+1)*8])
		floats[i] = math.Float64frombits(bits)
	}

	return &Embedding{
		Embedding: floats,
	}, nil
}

// DotProduct calculates the dot product of the embedding vector with another
// embedding vector. Both vectors must have the same length; otherwise, an
// ErrVectorLengthMismatch is returned.
func (e *Embedding) DotProduct(other *Embedding) (float64, error) {
	if len(e.Embedding) != len(other.Embedding) {
		return 0, ErrVectorLengthMismatch
	}

	var dotProduct float64
	for i := range e.Embedding {
		dotProduct += e.Embedding[i] * other.Embedding[i]
	}

	return dotProduct, nil
}

// CosineSimilarity returns the cosine similarity of two vectors
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorLengthMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
