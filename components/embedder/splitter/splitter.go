// Package splitter segments text with Unicode text segmentation (UAX #29)
// and builds chunkers on top of the segments.
package splitter

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/phrases"
	"github.com/clipperhouse/uax29/sentences"
	"github.com/clipperhouse/uax29/words"

	"github.com/bububa/atomic-cookbook/components/embedder"
)

// Unit is the segment a chunker packs into chunks
type Unit int

const (
	SentenceUnit Unit = iota
	PhraseUnit
	WordUnit
)

// Sentences splits text into trimmed, non empty sentences
func Sentences(text string) []string {
	return collect(sentences.SegmentAll([]byte(text)))
}

// Phrases splits text into trimmed, non empty phrases
func Phrases(text string) []string {
	return collect(phrases.SegmentAll([]byte(text)))
}

// Words splits text into words, whitespace and punctuation segments are dropped
func Words(text string) []string {
	segments := words.SegmentAll([]byte(text))
	ret := make([]string, 0, len(segments))
	for _, seg := range segments {
		if isWord(seg) {
			ret = append(ret, string(seg))
		}
	}
	return ret
}

func collect(segments [][]byte) []string {
	ret := make([]string, 0, len(segments))
	for _, seg := range segments {
		if s := strings.TrimSpace(string(seg)); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}

func isWord(seg []byte) bool {
	for _, r := range string(seg) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// WordTokenCounter counts UAX #29 words, it is more accurate than whitespace
// splitting for languages written without spaces
type WordTokenCounter struct{}

var _ embedder.TokenCounter = (*WordTokenCounter)(nil)

// Count implements embedder.TokenCounter interface
func (WordTokenCounter) Count(text string) int {
	return len(Words(text))
}

// New returns a TextChunker which packs segments of the given unit.
// The word counter is used unless another TokenCounter is given.
func New(unit Unit, opts ...embedder.TextChunkerOption) *embedder.TextChunker {
	var split func(string) []string
	switch unit {
	case PhraseUnit:
		split = Phrases
	case WordUnit:
		split = Words
	default:
		split = Sentences
	}
	options := make([]embedder.TextChunkerOption, 0, len(opts)+2)
	options = append(options, embedder.WithSentenceSplitter(split), embedder.WithTokenCounter(WordTokenCounter{}))
	options = append(options, opts...)
	return embedder.NewTextChunker(options...)
}
