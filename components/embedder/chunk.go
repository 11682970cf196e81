package embedder

import (
	"strings"
)

// Embedding is a special format of data representation that can be easily utilized by machine
// learning models and algorithms. The embedding is an information dense representation of the
// semantic meaning of a piece of text. Each embedding is a vector of floating point numbers,
// such that the distance between two embeddings in the vector space is correlated with semantic similarity
// between two inputs in the original format.
type Embedding struct {
	Object    string            `json:"object"`
	Embedding []float64         `json:"embedding"`
	Index     int               `json:"index"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// EmbeddedChunk represents a chunk of text along with its vector embeddings
type EmbeddedChunk struct {
	Embedding
	// Chunk is the original chunk content that was embedded
	Chunk *Chunk `json:"text"`
}

// Chunk represents a piece of text with associated metadata for tracking its position
// and size within the original document.
type Chunk struct {
	// Text contains the actual content of the chunk
	Text string
	// TokenSize represents the number of tokens in this chunk
	TokenSize int
	// StartSentence is the index of the first sentence in this chunk
	StartSentence int
	// EndSentence is the index of the last sentence in this chunk (exclusive)
	EndSentence int
}

// Chunker defines the interface for text chunking implementations.
type Chunker interface {
	// Chunk splits the input text into a slice of Chunks according to the
	// implementation's strategy.
	Chunk(text string) []Chunk
}

// DefaultSentenceSplitter provides a basic implementation for splitting text into sentences.
// It uses common punctuation marks (., !, ?) as sentence boundaries.
func DefaultSentenceSplitter(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	ret := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}

// TextChunker packs sentences into chunks of ChunkSize tokens,
// adjacent chunks share about ChunkOverlap tokens.
type TextChunker struct {
	// ChunkSize is the target size of each chunk in tokens
	ChunkSize int
	// ChunkOverlap is the number of tokens that should overlap between adjacent chunks
	ChunkOverlap int
	// TokenCounter is used to count tokens in text segments
	TokenCounter TokenCounter
	// SentenceSplitter is a function that splits text into sentences
	SentenceSplitter func(string) []string
}

var _ Chunker = (*TextChunker)(nil)

// NewTextChunker creates a new TextChunker with the given options.
// Defaults:
// - ChunkSize: 200 tokens
// - ChunkOverlap: 50 tokens
// - TokenCounter: DefaultTokenCounter
// - SentenceSplitter: DefaultSentenceSplitter
func NewTextChunker(options ...TextChunkerOption) *TextChunker {
	tc := &TextChunker{
		ChunkSize:        200,
		ChunkOverlap:     50,
		TokenCounter:     &DefaultTokenCounter{},
		SentenceSplitter: DefaultSentenceSplitter,
	}

	for _, option := range options {
		option(tc)
	}

	return tc
}

// TextChunkerOption is a function type for configuring TextChunker instances.
type TextChunkerOption func(*TextChunker)

func WithChunkSize(size int) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.ChunkSize = size
	}
}

func WithChunkOverlap(overlap int) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.ChunkOverlap = overlap
	}
}

func WithTokenCounter(counter TokenCounter) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.TokenCounter = counter
	}
}

func WithSentenceSplitter(fn func(string) []string) TextChunkerOption {
	return func(tc *TextChunker) {
		tc.SentenceSplitter = fn
	}
}

// Chunk splits the input text into chunks while preserving sentence boundaries
// and maintaining the specified overlap between chunks. The algorithm:
// 1. Splits the text into sentences
// 2. Builds chunks by adding sentences until the chunk size limit is reached
// 3. Creates overlap with previous chunk when starting a new chunk
// 4. Tracks token counts and sentence indices for each chunk
func (tc *TextChunker) Chunk(text string) []Chunk {
	sentences := tc.SentenceSplitter(text)
	counts := make([]int, len(sentences))
	for i, sentence := range sentences {
		counts[i] = tc.TokenCounter.Count(sentence)
	}
	var (
		chunks       []Chunk
		start        int
		currentCount int
	)
	flush := func(end int) {
		chunks = append(chunks, Chunk{
			Text:          strings.Join(sentences[start:end], " "),
			TokenSize:     currentCount,
			StartSentence: start,
			EndSentence:   end,
		})
	}
	for i := range sentences {
		if currentCount+counts[i] > tc.ChunkSize && currentCount > 0 {
			flush(i)
			overlapStart := max(start+1, i-tc.estimateOverlapSentences(counts, i, tc.ChunkOverlap))
			start = min(overlapStart, i)
			currentCount = 0
			for j := start; j < i; j++ {
				currentCount += counts[j]
			}
		}
		currentCount += counts[i]
	}
	if len(sentences) > start && currentCount > 0 {
		flush(len(sentences))
	}
	return chunks
}

// estimateOverlapSentences calculates how many sentences from the end of the
// previous chunk should be included in the next chunk to achieve the desired
// token overlap.
func (tc *TextChunker) estimateOverlapSentences(counts []int, endSentence, desiredOverlap int) int {
	overlapTokens := 0
	overlapSentences := 0
	for i := endSentence - 1; i >= 0 && overlapTokens < desiredOverlap; i-- {
		overlapTokens += counts[i]
		overlapSentences++
	}
	return overlapSentences
}
