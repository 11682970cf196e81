package qdrant

import (
	"context"
	"os"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/vectordb"
)

func TestPointRoundTrip(t *testing.T) {
	doc := vectordb.Document{
		ID:        vectordb.ContentID("hello"),
		Name:      "greeting",
		Content:   "hello",
		Meta:      map[string]string{"lang": "en"},
		Embedding: []float64{0.5, 0.5},
	}
	point, err := ToPoint(&doc)
	require.NoError(t, err)
	assert.Equal(t, "5d41402a-bc4b-2a76-b971-9d911017c592", point.GetId().GetUuid())
	assert.Equal(t, "greeting", point.GetPayload()[vectordb.MetaName].GetStringValue())

	got := FromPoint(&qdrant.ScoredPoint{Id: point.Id, Payload: point.Payload, Score: 0.75})
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "greeting", got.Name)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, map[string]string{"lang": "en"}, got.Meta)
	assert.InDelta(t, 0.75, got.Score, 1e-6)

	_, err = PointID("not-hex")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	assert.Nil(t, Filter(nil))
	f := Filter(map[string]string{"lang": "en"})
	require.Len(t, f.Must, 1)
	assert.Equal(t, "lang", f.Must[0].GetField().GetKey())
	assert.Equal(t, qdrant.Distance_Euclid, DistanceOf(vectordb.L2))
}

func TestQdrant(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		t.Skip("QDRANT_HOST not set")
	}
	ctx := context.Background()
	e, err := Connect(&qdrant.Config{Host: host, Port: 6334}, vectordb.WithCollection("cookbook_test"), vectordb.WithEmbedder(hashing.New()))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Drop(ctx))
	require.NoError(t, e.Insert(ctx, []vectordb.Document{{Name: "a", Content: "qdrant stores points"}}, nil))
	count, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	found, err := e.Search(ctx, "points", 1, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, e.Delete(ctx))
}
