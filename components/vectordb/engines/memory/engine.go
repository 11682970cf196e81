package memory

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

// Store holds collections in memory. Several engines may share one store.
type Store struct {
	collections sync.Map
}

// NewStore returns an empty store
func NewStore() *Store {
	return new(Store)
}

// Engine implements the VectorDB interface using in-memory storage.
// It provides thread-safe operations for managing collections and performing
// vector similarity searches without the need for external database systems.
type Engine struct {
	store *Store
	vectordb.Options
}

var _ vectordb.VectorDB = (*Engine)(nil)

// Collection represents a named set of documents.
// It's the basic unit of organization in the memory database.
type Collection struct {
	// docs holds the documents in insertion order
	docs []vectordb.Document
	// index maps a document id to its position in docs
	index map[string]int
	// mu provides thread-safety for concurrent operations
	mu sync.RWMutex
}

func newCollection() *Collection {
	return &Collection{
		index: make(map[string]int),
	}
}

// Put adds docs, replacing existing ones when overwrite is set.
// It returns the number of documents written.
func (c *Collection) Put(overwrite bool, docs ...vectordb.Document) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var written int
	for _, doc := range docs {
		if idx, ok := c.index[doc.ID]; ok {
			if overwrite {
				c.docs[idx] = doc
				written++
			}
			continue
		}
		c.index[doc.ID] = len(c.docs)
		c.docs = append(c.docs, doc)
		written++
	}
	return written
}

func (c *Collection) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

func (c *Collection) Documents() []vectordb.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]vectordb.Document, len(c.docs))
	copy(ret, c.docs)
	return ret
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// New creates a new in-memory vector database engine bound to one collection.
// A nil store creates a private one.
func New(store *Store, opts ...vectordb.Option) *Engine {
	if store == nil {
		store = NewStore()
	}
	return &Engine{
		store:   store,
		Options: vectordb.NewOptions(opts...),
	}
}

func (e *Engine) Engine() vectordb.EngineType {
	return vectordb.Memory
}

func (e *Engine) collection() *Collection {
	col, ok := e.store.collections.Load(e.Collection())
	if !ok {
		return nil
	}
	return col.(*Collection)
}

func (e *Engine) Create(_ context.Context) error {
	e.store.collections.LoadOrStore(e.Collection(), newCollection())
	return nil
}

func (e *Engine) Exists(_ context.Context) (bool, error) {
	return e.collection() != nil, nil
}

func (e *Engine) DocExists(_ context.Context, doc *vectordb.Document) (bool, error) {
	col := e.collection()
	if col == nil {
		return false, nil
	}
	return col.Has(vectordb.ContentID(doc.Content)), nil
}

func (e *Engine) NameExists(_ context.Context, name string) (bool, error) {
	col := e.collection()
	if col == nil {
		return false, nil
	}
	for _, doc := range col.Documents() {
		if doc.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) Insert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	return e.write(ctx, docs, filters, false)
}

func (e *Engine) Upsert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	return e.write(ctx, docs, filters, true)
}

func (e *Engine) UpsertAvailable() bool {
	return true
}

func (e *Engine) write(ctx context.Context, docs []vectordb.Document, filters map[string]string, overwrite bool) error {
	if len(docs) == 0 {
		return nil
	}
	if err := vectordb.Prepare(ctx, e.Embedder(), docs, filters); err != nil {
		e.Logger().Error("prepare documents failed", zap.Error(err))
		return err
	}
	if err := e.Create(ctx); err != nil {
		return err
	}
	written := e.collection().Put(overwrite, docs...)
	e.Logger().Debug("documents written", zap.String("collection", e.Collection()), zap.Int("count", written))
	return nil
}

func (e *Engine) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]vectordb.Document, error) {
	col := e.collection()
	if col == nil {
		e.Logger().Error("search on missing collection", zap.String("collection", e.Collection()))
		return nil, vectordb.ErrCollectionNotFound
	}
	if limit <= 0 || col.Len() == 0 {
		return nil, nil
	}
	vec, err := vectordb.EmbedQuery(ctx, e.Embedder(), query)
	if err != nil {
		e.Logger().Error("embed query failed", zap.Error(err))
		return nil, err
	}
	docs := filterDocuments(col.Documents(), filters)
	distance := e.Distance()
	for idx := range docs {
		docs[idx].Score = Score(distance, vec, docs[idx].Embedding)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	docs = docs[:min(limit, len(docs))]
	return vectordb.Rerank(ctx, e.Reranker(), e.Logger(), query, docs), nil
}

func (e *Engine) Drop(_ context.Context) error {
	e.store.collections.Delete(e.Collection())
	return nil
}

func (e *Engine) Count(_ context.Context) (int, error) {
	col := e.collection()
	if col == nil {
		return 0, nil
	}
	return col.Len(), nil
}

func (e *Engine) Delete(ctx context.Context) error {
	if e.collection() == nil {
		return vectordb.ErrCollectionNotFound
	}
	return e.Drop(ctx)
}

func (e *Engine) Optimize(_ context.Context) error {
	return nil
}

// filterDocuments filters documents by metadata.
// It does this concurrently.
func filterDocuments(docs []vectordb.Document, filters map[string]string) []vectordb.Document {
	if len(filters) == 0 {
		return docs
	}
	filteredDocs := make([]vectordb.Document, 0, len(docs))
	filteredDocsLock := sync.Mutex{}

	// Determine concurrency. Use number of docs or CPUs, whichever is smaller.
	concurrency := min(runtime.NumCPU(), len(docs))

	docChan := make(chan vectordb.Document, concurrency*2)

	wg := sync.WaitGroup{}
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range docChan {
				if doc.MatchFilters(filters) {
					filteredDocsLock.Lock()
					filteredDocs = append(filteredDocs, doc)
					filteredDocsLock.Unlock()
				}
			}
		}()
	}

	for _, doc := range docs {
		docChan <- doc
	}
	close(docChan)

	wg.Wait()
	return filteredDocs
}

// Score compares two vectors with the given distance. Higher is more similar for every metric:
// - cosine: cosine similarity
// - l2: 1 / (1 + euclidean distance)
// - max_inner_product: dot product
func Score(distance vectordb.Distance, a, b []float64) float64 {
	n := min(len(a), len(b))
	switch distance {
	case vectordb.L2:
		var sum float64
		for i := 0; i < n; i++ {
			diff := a[i] - b[i]
			sum += diff * diff
		}
		return 1 / (1 + math.Sqrt(sum))
	case vectordb.MaxInnerProduct:
		var dot float64
		for i := 0; i < n; i++ {
			dot += a[i] * b[i]
		}
		return dot
	default:
		var dot, na, nb float64
		for i := 0; i < n; i++ {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}
