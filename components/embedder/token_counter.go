package embedder

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts the tokens of a text, chunkers size their chunks with it
type TokenCounter interface {
	Count(text string) int
}

// DefaultTokenCounter counts whitespace separated fields
type DefaultTokenCounter struct{}

func (*DefaultTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TikTokenCounter counts BPE tokens the way OpenAI models do
type TikTokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var (
	_ TokenCounter = (*DefaultTokenCounter)(nil)
	_ TokenCounter = (*TikTokenCounter)(nil)
)

// NewTikTokenCounter loads an encoding by name, cl100k_base or o200k_base for instance.
// The encoding ranks are downloaded on first use unless TIKTOKEN_CACHE_DIR holds them.
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken encoding %s: %w", encoding, err)
	}
	return &TikTokenCounter{encoding: enc}, nil
}

// NewTikTokenCounterForModel loads the encoding used by an OpenAI model
func NewTikTokenCounterForModel(model string) (*TikTokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tiktoken model %s: %w", model, err)
	}
	return &TikTokenCounter{encoding: enc}, nil
}

func (c *TikTokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
