package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/vectordb"
)

func TestEngine(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	e := New(store, vectordb.WithCollection("kb"), vectordb.WithEmbedder(hashing.New()))
	docs := []vectordb.Document{
		{Name: "a", Content: "postgres stores rows in tables"},
		{Name: "b", Content: "qdrant stores vectors in collections", Meta: map[string]string{"kind": "vector"}},
	}
	require.NoError(t, e.Insert(ctx, docs, nil))
	require.NoError(t, e.Insert(ctx, docs, nil))
	count, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	other := New(store, vectordb.WithCollection("kb"), vectordb.WithEmbedder(hashing.New()))
	ok, err := other.NameExists(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = other.DocExists(ctx, &docs[0])
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := e.Search(ctx, "vectors collections", 1, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Name)

	found, err = e.Search(ctx, "vectors collections", 5, map[string]string{"kind": "none"})
	require.NoError(t, err)
	assert.Empty(t, found)

	updated := []vectordb.Document{{Name: "c", Content: docs[0].Content}}
	require.NoError(t, e.Upsert(ctx, updated, nil))
	ok, err = e.NameExists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Delete(ctx))
	assert.ErrorIs(t, e.Delete(ctx), vectordb.ErrCollectionNotFound)
	_, err = e.Search(ctx, "x", 1, nil)
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)
}

func TestScore(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 1.0, Score(vectordb.Cosine, a, a), 1e-9)
	assert.InDelta(t, 0.0, Score(vectordb.Cosine, a, b), 1e-9)
	assert.InDelta(t, 1.0, Score(vectordb.L2, a, a), 1e-9)
	assert.InDelta(t, 1/(1+1.4142135623730951), Score(vectordb.L2, a, b), 1e-9)
	assert.InDelta(t, 2.0, Score(vectordb.MaxInnerProduct, []float64{1, 1}, []float64{1, 1}), 1e-9)
}
