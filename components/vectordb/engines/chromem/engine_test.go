package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/vectordb"
	"github.com/bububa/atomic-cookbook/components/vectordb/reranker/lexical"
)

func corpus() []vectordb.Document {
	return []vectordb.Document{
		{Name: "go_0", Content: "Go is a statically typed compiled programming language", Meta: map[string]string{"topic": "go"}},
		{Name: "go_1", Content: "Goroutines are lightweight threads managed by the Go runtime", Meta: map[string]string{"topic": "go"}},
		{Name: "food_0", Content: "Thai green curry is made with coconut milk", Meta: map[string]string{"topic": "food"}},
	}
}

func newEngine(t *testing.T, opts ...vectordb.Option) *Engine {
	t.Helper()
	opts = append([]vectordb.Option{
		vectordb.WithCollection("test"),
		vectordb.WithEmbedder(hashing.New()),
	}, opts...)
	return New(nil, opts...)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	exists, err := e.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, e.Delete(ctx), vectordb.ErrCollectionNotFound)
	require.NoError(t, e.Drop(ctx))

	require.NoError(t, e.Create(ctx))
	require.NoError(t, e.Create(ctx))
	exists, err = e.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "cosine", space(vectordb.Cosine))
	assert.Equal(t, "ip", space(vectordb.MaxInnerProduct))

	require.NoError(t, e.Delete(ctx))
	exists, err = e.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, e.Optimize(ctx), vectordb.ErrUnsupported)
}

func TestInsertSkipsExisting(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, e.Insert(ctx, corpus(), nil))
	count, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	docs := corpus()
	docs[0].Name = "renamed"
	require.NoError(t, e.Insert(ctx, docs, nil))
	count, err = e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	ok, err := e.NameExists(ctx, "renamed")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.Upsert(ctx, docs, nil))
	ok, err = e.NameExists(ctx, "renamed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, e.UpsertAvailable())
}

func TestDocExists(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	doc := corpus()[0]
	ok, err := e.DocExists(ctx, &doc)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, e.Insert(ctx, []vectordb.Document{doc}, nil))
	ok, err = e.DocExists(ctx, &doc)
	require.NoError(t, err)
	assert.True(t, ok)
	other := vectordb.Document{Content: "something else"}
	ok, err = e.DocExists(ctx, &other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, e.Insert(ctx, corpus(), map[string]string{"source": "unit"}))

	docs, err := e.Search(ctx, "coconut curry", 10, nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "food_0", docs[0].Name)
	assert.Equal(t, "unit", docs[0].Meta["source"])
	assert.Equal(t, vectordb.ContentID(docs[0].Content), docs[0].ID)
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)

	docs, err = e.Search(ctx, "coconut curry", 5, map[string]string{"topic": "go"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, "go", doc.Meta["topic"])
	}
}

func TestSearchMissingCollection(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := newEngine(t, vectordb.WithLogger(zap.New(core)))
	_, err := e.Search(context.Background(), "q", 3, nil)
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)
	assert.Equal(t, 1, logs.Len())
}

func TestSearchWithReranker(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, vectordb.WithReranker(lexical.New(1)))
	require.NoError(t, e.Insert(ctx, corpus(), nil))
	docs, err := e.Search(ctx, "goroutines runtime", 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "go_1", docs[0].Name)
}

func TestPersistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	e, err := NewPersistent(dir, false, vectordb.WithCollection("persist"), vectordb.WithEmbedder(hashing.New()))
	require.NoError(t, err)
	require.NoError(t, e.Insert(ctx, corpus(), nil))

	reopened, err := NewPersistent(dir, false, vectordb.WithCollection("persist"), vectordb.WithEmbedder(hashing.New()))
	require.NoError(t, err)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
