package engines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/vectordb"
	"github.com/bububa/atomic-cookbook/components/vectordb/reranker/cohere"
	"github.com/bububa/atomic-cookbook/components/vectordb/reranker/lexical"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	opts := []vectordb.Option{vectordb.WithCollection("docs"), vectordb.WithEmbedder(hashing.New())}

	for _, engine := range []vectordb.EngineType{vectordb.Memory, vectordb.Chromem} {
		db, closeFn, err := Open(ctx, Config{Engine: engine}, opts...)
		require.NoError(t, err)
		assert.Equal(t, engine, db.Engine())
		require.NoError(t, db.Create(ctx))
		closeFn()
	}

	db, closeFn, err := Open(ctx, Config{Path: t.TempDir(), Compress: true}, opts...)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, vectordb.Chromem, db.Engine())

	_, _, err = Open(ctx, Config{Engine: "lancedb"}, opts...)
	assert.ErrorContains(t, err, `unknown vectordb engine "lancedb"`)
}

type rerankerHolder interface {
	Reranker() vectordb.Reranker
}

func TestOpenReranker(t *testing.T) {
	ctx := context.Background()
	opts := []vectordb.Option{vectordb.WithCollection("docs"), vectordb.WithEmbedder(hashing.New())}

	db, closeFn, err := Open(ctx, Config{Engine: vectordb.Memory, Reranker: LexicalReranker, RerankTopN: 2}, opts...)
	require.NoError(t, err)
	defer closeFn()
	holder, ok := db.(rerankerHolder)
	require.True(t, ok)
	assert.IsType(t, &lexical.Reranker{}, holder.Reranker())

	db, closeFn, err = Open(ctx, Config{Engine: vectordb.Memory}, opts...)
	require.NoError(t, err)
	defer closeFn()
	assert.Nil(t, db.(rerankerHolder).Reranker())

	explicit := cohere.New(nil, "", 0)
	db, closeFn, err = Open(ctx, Config{Engine: vectordb.Memory, Reranker: LexicalReranker}, append(opts, vectordb.WithReranker(explicit))...)
	require.NoError(t, err)
	defer closeFn()
	assert.Same(t, explicit, db.(rerankerHolder).Reranker())

	_, _, err = Open(ctx, Config{Engine: vectordb.Memory, Reranker: CohereReranker}, opts...)
	assert.ErrorContains(t, err, "cohere reranker needs a cohere client")

	_, _, err = Open(ctx, Config{Engine: vectordb.Memory, Reranker: "bm25"}, opts...)
	assert.ErrorContains(t, err, `unknown reranker "bm25"`)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := SplitHostPort("", DefaultQdrantPort)
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, DefaultQdrantPort, port)

	host, port, err = SplitHostPort("qdrant.local:7000", DefaultQdrantPort)
	require.NoError(t, err)
	assert.Equal(t, "qdrant.local", host)
	assert.Equal(t, 7000, port)

	host, port, err = SplitHostPort("qdrant.local", DefaultQdrantPort)
	require.NoError(t, err)
	assert.Equal(t, "qdrant.local", host)
	assert.Equal(t, DefaultQdrantPort, port)

	_, _, err = SplitHostPort("qdrant.local:grpc", DefaultQdrantPort)
	assert.Error(t, err)
}
