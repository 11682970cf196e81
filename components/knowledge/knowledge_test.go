package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bububa/atomic-cookbook/components/document"
	"github.com/bububa/atomic-cookbook/components/embedder"
	"github.com/bububa/atomic-cookbook/components/embedder/providers/hashing"
	"github.com/bububa/atomic-cookbook/components/embedder/splitter"
	"github.com/bububa/atomic-cookbook/components/vectordb"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/memory"
)

const corpus = "Go has goroutines for concurrency. Channels connect goroutines safely. " +
	"Curry is a dish from Thailand. Coconut milk makes curry creamy."

func newBase(t *testing.T, logger *zap.Logger, sources ...document.Loader) *Base {
	t.Helper()
	db := memory.New(nil, vectordb.WithCollection("kb"), vectordb.WithEmbedder(hashing.New()))
	return New(db,
		WithSources(sources...),
		WithChunker(splitter.New(splitter.SentenceUnit, embedder.WithChunkSize(5), embedder.WithChunkOverlap(0))),
		WithNumDocuments(2),
		WithRateLimit(1000, 10),
		WithLogger(logger),
	)
}

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	path := writeFile(t, "notes.txt", corpus)
	kb := newBase(t, zap.New(core), document.NewFile(path), document.NewFile(filepath.Join(t.TempDir(), "missing.txt")))

	n, err := kb.Load(ctx, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, logs.FilterMessage("load source failed").Len())

	ok, err := kb.DB().NameExists(ctx, "notes_4")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = kb.Load(ctx, LoadOptions{SkipExisting: true})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	count, err := kb.DB().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	n, err = kb.Load(ctx, LoadOptions{Recreate: true, Upsert: true})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	count, err = kb.DB().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestSearchAndReferences(t *testing.T) {
	ctx := context.Background()
	kb := newBase(t, nil, document.NewFile(writeFile(t, "notes.txt", corpus)))
	_, err := kb.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	docs, err := kb.Search(ctx, "coconut milk curry")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes_4", docs[0].Name)
	assert.Equal(t, "4", docs[0].Meta["chunk"])
	assert.Equal(t, "file", docs[0].Meta["source"])

	refs, err := kb.References(ctx, "coconut milk curry")
	require.NoError(t, err)
	assert.Contains(t, refs, "[1] notes_4\nCoconut milk makes curry creamy.")
	assert.Contains(t, refs, "\n\n[2] ")
}

func TestDocuments(t *testing.T) {
	kb := newBase(t, nil)
	docs := kb.Documents("guide", corpus, map[string]string{"source": "x"})
	require.Len(t, docs, 4)
	assert.Equal(t, "guide_1", docs[0].Name)
	assert.Equal(t, "Go has goroutines for concurrency.", docs[0].Content)
	assert.Equal(t, "x", docs[3].Meta["source"])
	assert.Empty(t, FormatReferences(nil))
}

func TestLoadProgress(t *testing.T) {
	path := writeFile(t, "notes.txt", corpus)
	missing := filepath.Join(t.TempDir(), "missing.txt")
	var reported []string
	var loaded int
	db := memory.New(nil, vectordb.WithCollection("kb"), vectordb.WithEmbedder(hashing.New()))
	kb := New(db,
		WithSources(document.NewFile(path), document.NewFile(missing)),
		WithProgress(func(source string, documents int, err error) {
			reported = append(reported, source)
			if err == nil {
				loaded += documents
			}
		}),
	)
	n, err := kb.Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, kb.Sources(), 2)
	assert.Len(t, reported, 2)
	assert.Equal(t, n, loaded)
}
