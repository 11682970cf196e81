package vectordb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/embedder"
)

// EngineType names a vector database backend
type EngineType string

const (
	Memory   EngineType = "memory"
	Chromem  EngineType = "chromem"
	Milvus   EngineType = "milvus"
	Qdrant   EngineType = "qdrant"
	PgVector EngineType = "pgvector"
)

// Distance is the metric used to compare vectors
type Distance string

const (
	Cosine          Distance = "cosine"
	L2              Distance = "l2"
	MaxInnerProduct Distance = "max_inner_product"
)

// VectorDB is bound to a single collection of a vector database
type VectorDB interface {
	// Engine returns the backend type
	Engine() EngineType
	// Create creates the collection if it does not exist
	Create(ctx context.Context) error
	// Exists reports whether the collection exists
	Exists(ctx context.Context) (bool, error)
	// DocExists reports whether a document with the same content is stored
	DocExists(ctx context.Context, doc *Document) (bool, error)
	// NameExists reports whether a document with the given name is stored
	NameExists(ctx context.Context, name string) (bool, error)
	// Insert adds documents, documents whose id already exists are skipped
	Insert(ctx context.Context, docs []Document, filters map[string]string) error
	// Upsert adds or replaces documents
	Upsert(ctx context.Context, docs []Document, filters map[string]string) error
	// UpsertAvailable reports whether Upsert is supported
	UpsertAvailable() bool
	// Search returns up to limit documents most similar to query
	Search(ctx context.Context, query string, limit int, filters map[string]string) ([]Document, error)
	// Drop deletes the collection if it exists
	Drop(ctx context.Context) error
	// Count returns the number of stored documents
	Count(ctx context.Context) (int, error)
	// Delete deletes the collection, it fails when the collection is missing
	Delete(ctx context.Context) error
	// Optimize rebuilds indexes where the backend supports it
	Optimize(ctx context.Context) error
}

// Reranker reorders search results for a query
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document) ([]Document, error)
}

// Prepare embeds each document, cleans its content and assigns its content id.
// filters are merged into the metadata of every document.
func Prepare(ctx context.Context, e embedder.Embedder, docs []Document, filters map[string]string) error {
	for idx := range docs {
		doc := &docs[idx]
		doc.Content = CleanContent(doc.Content)
		if len(filters) > 0 {
			if doc.Meta == nil {
				doc.Meta = make(map[string]string, len(filters))
			}
			for k, v := range filters {
				doc.Meta[k] = v
			}
		}
		if len(doc.Embedding) == 0 {
			if e == nil {
				return ErrNoEmbedder
			}
			if err := doc.Embed(ctx, e); err != nil {
				return fmt.Errorf("embed document %q: %w", doc.Name, err)
			}
		}
		doc.ID = ContentID(doc.Content)
	}
	return nil
}

// EmbedQuery returns the embedding of a search query
func EmbedQuery(ctx context.Context, e embedder.Embedder, query string) ([]float64, error) {
	if e == nil {
		return nil, ErrNoEmbedder
	}
	var embedding embedder.Embedding
	if err := e.Embed(ctx, query, &embedding, nil); err != nil {
		return nil, err
	}
	if len(embedding.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	return embedding.Embedding, nil
}

// Rerank applies the reranker when one is configured. A reranker failure is
// logged and the original order is kept.
func Rerank(ctx context.Context, r Reranker, logger *zap.Logger, query string, docs []Document) []Document {
	if r == nil || len(docs) == 0 {
		return docs
	}
	ret, err := r.Rerank(ctx, query, docs)
	if err != nil {
		if logger != nil {
			logger.Warn("rerank failed, keeping vector order", zap.Error(err))
		}
		return docs
	}
	return ret
}
