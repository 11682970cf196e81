package vectordb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/components/embedder"
)

var (
	// ErrCollectionNotFound is returned when the bound collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrNoEmbedding is returned when a document could not be embedded
	ErrNoEmbedding = errors.New("document has no embedding")
	// ErrNoEmbedder is returned when an engine needs an embedder and has none
	ErrNoEmbedder = errors.New("no embedder configured")
	// ErrUnsupported is returned by operations an engine does not implement
	ErrUnsupported = errors.New("operation not supported")
)

// MetaName is the metadata key under which the document name is stored
const MetaName = "name"

// Document is a piece of content stored in a vector database
type Document struct {
	// ID is the content hash of the document
	ID string `json:"id,omitempty"`
	// Name identifies the source of the document, e.g. "report_3"
	Name string `json:"name,omitempty"`
	// Content is the text which is embedded
	Content string `json:"content,omitempty"`
	// Meta holds filterable attributes
	Meta map[string]string `json:"meta,omitempty"`
	// Embedding is the vector of the content
	Embedding []float64 `json:"embedding,omitempty"`
	// Score is the similarity returned by a search, higher is better
	Score float64 `json:"score,omitempty"`
	// Usage of the embedding call
	Usage *components.LLMUsage `json:"usage,omitempty"`
}

// CleanContent replaces NUL characters which most databases refuse to store
func CleanContent(content string) string {
	return strings.ReplaceAll(content, "\x00", "�")
}

// ContentID returns the md5 hex digest of the cleaned content
func ContentID(content string) string {
	sum := md5.Sum([]byte(CleanContent(content)))
	return hex.EncodeToString(sum[:])
}

// Embed fills the document embedding using the given embedder
func (d *Document) Embed(ctx context.Context, e embedder.Embedder) error {
	var (
		embedding embedder.Embedding
		usage     components.LLMUsage
	)
	if err := e.Embed(ctx, d.Content, &embedding, &usage); err != nil {
		return err
	}
	if len(embedding.Embedding) == 0 {
		return ErrNoEmbedding
	}
	d.Embedding = embedding.Embedding
	d.Usage = &usage
	return nil
}

// Metadata returns a copy of the document meta including its name
func (d *Document) Metadata() map[string]string {
	ret := make(map[string]string, len(d.Meta)+1)
	for k, v := range d.Meta {
		ret[k] = v
	}
	if d.Name != "" {
		ret[MetaName] = d.Name
	}
	return ret
}

// SetMetadata splits stored metadata back into name and meta
func (d *Document) SetMetadata(meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	d.Meta = make(map[string]string, len(meta))
	for k, v := range meta {
		if k == MetaName {
			d.Name = v
			continue
		}
		d.Meta[k] = v
	}
}

// MatchFilters reports whether every filter key has the same value in the document metadata
func (d *Document) MatchFilters(filters map[string]string) bool {
	for k, v := range filters {
		if k == MetaName {
			if d.Name != v {
				return false
			}
			continue
		}
		if d.Meta[k] != v {
			return false
		}
	}
	return true
}
