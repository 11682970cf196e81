package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

func TestRerank(t *testing.T) {
	docs := []vectordb.Document{
		{ID: "doc1", Content: "use retry with exponential backoff for authentication", Score: 0.8},
		{ID: "doc2", Content: "invalid request parameter", Score: 0.9},
		{ID: "doc3", Content: "token refresh and authentication handling", Score: 0.85},
	}
	got, err := New(0).Rerank(context.Background(), "authentication token retry", docs)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, doc := range got {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"doc3", "doc1", "doc2"}, ids)
	assert.Equal(t, 0.8, docs[0].Score)
}

func TestRerankTopN(t *testing.T) {
	docs := []vectordb.Document{{ID: "a", Score: 0.1}, {ID: "b", Score: 0.9}}
	got, err := New(1).Rerank(context.Background(), "the", docs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"quick", "brown", "fox"}, Terms("The quick, brown fox is up"))
	assert.InDelta(t, 0.5, Overlap([]string{"quick", "dog", "quick"}, []string{"quick"}), 1e-9)
}
