package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

// MetaSpace is the collection metadata key recording the distance metric
const MetaSpace = "hnsw:space"

var errEmbeddingRequired = errors.New("embedding must be computed before storage")

// Engine adapts an embedded chromem database to vectordb.VectorDB.
// Embeddings are always computed by the configured embedder before they reach chromem.
type Engine struct {
	db *chromem.DB
	vectordb.Options
}

var _ vectordb.VectorDB = (*Engine)(nil)

// New binds an engine to db. A nil db creates an in-memory database.
func New(db *chromem.DB, opts ...vectordb.Option) *Engine {
	if db == nil {
		db = chromem.NewDB()
	}
	return &Engine{
		db:      db,
		Options: vectordb.NewOptions(opts...),
	}
}

// NewPersistent opens a persistent chromem database stored in path
func NewPersistent(path string, compress bool, opts ...vectordb.Option) (*Engine, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", path, err)
	}
	return New(db, opts...), nil
}

func (e *Engine) Engine() vectordb.EngineType {
	return vectordb.Chromem
}

func identityEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errEmbeddingRequired
}

// space maps a distance to the metadata value recorded on the collection
func space(d vectordb.Distance) string {
	switch d {
	case vectordb.L2:
		return "l2"
	case vectordb.MaxInnerProduct:
		return "ip"
	default:
		return "cosine"
	}
}

func (e *Engine) collection() *chromem.Collection {
	return e.db.GetCollection(e.Collection(), identityEmbedding)
}

func (e *Engine) Create(_ context.Context) error {
	if e.collection() != nil {
		return nil
	}
	if e.Distance() != vectordb.Cosine {
		e.Logger().Warn("chromem scores by cosine similarity only", zap.String("distance", string(e.Distance())))
	}
	e.Logger().Debug("creating collection", zap.String("collection", e.Collection()))
	if _, err := e.db.CreateCollection(e.Collection(), map[string]string{MetaSpace: space(e.Distance())}, identityEmbedding); err != nil {
		e.Logger().Error("create collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Exists(_ context.Context) (bool, error) {
	return e.collection() != nil, nil
}

func (e *Engine) DocExists(ctx context.Context, doc *vectordb.Document) (bool, error) {
	col := e.collection()
	if col == nil {
		return false, nil
	}
	_, err := col.GetByID(ctx, vectordb.ContentID(doc.Content))
	return err == nil, nil
}

func (e *Engine) NameExists(ctx context.Context, name string) (bool, error) {
	col := e.collection()
	if col == nil || col.Count() == 0 {
		return false, nil
	}
	probe, err := e.probe(ctx, name)
	if err != nil {
		e.Logger().Error("name lookup failed", zap.String("name", name), zap.Error(err))
		return false, err
	}
	results, err := col.QueryEmbedding(ctx, probe, 1, map[string]string{vectordb.MetaName: name}, nil)
	if err != nil {
		e.Logger().Error("name lookup failed", zap.String("name", name), zap.Error(err))
		return false, err
	}
	return len(results) > 0, nil
}

// probe returns a query vector of the stored dimension. Only the metadata filter matters for
// name lookups, so any vector of the right size will do.
func (e *Engine) probe(ctx context.Context, name string) ([]float32, error) {
	if dim := e.Dimension(); dim > 0 {
		probe := make([]float32, dim)
		probe[0] = 1
		return probe, nil
	}
	vec, err := vectordb.EmbedQuery(ctx, e.Embedder(), name)
	if err != nil {
		return nil, err
	}
	return vectordb.Float32s(vec), nil
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
	col := e.collection()
	seen := make(map[string]struct{}, len(docs))
	list := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		if !overwrite {
			if _, err := col.GetByID(ctx, doc.ID); err == nil {
				e.Logger().Debug("document exists, skipping", zap.String("id", doc.ID), zap.String("name", doc.Name))
				continue
			}
		}
		list = append(list, toChromem(&doc))
	}
	batchSize := e.BatchSize()
	for i := 0; i < len(list); i += batchSize {
		end := min(i+batchSize, len(list))
		if err := col.AddDocuments(ctx, list[i:end], runtime.NumCPU()); err != nil {
			e.Logger().Error("add documents failed", zap.String("collection", e.Collection()), zap.Error(err))
			return err
		}
	}
	e.Logger().Debug("documents written", zap.String("collection", e.Collection()), zap.Int("count", len(list)))
	return nil
}

// Search performs vector similarity search on the collection.
func (e *Engine) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]vectordb.Document, error) {
	col := e.collection()
	if col == nil {
		e.Logger().Error("search on missing collection", zap.String("collection", e.Collection()))
		return nil, vectordb.ErrCollectionNotFound
	}
	count := col.Count()
	if count == 0 || limit <= 0 {
		return nil, nil
	}
	vec, err := vectordb.EmbedQuery(ctx, e.Embedder(), query)
	if err != nil {
		e.Logger().Error("embed query failed", zap.Error(err))
		return nil, err
	}
	var where map[string]string
	if len(filters) > 0 {
		where = filters
	}
	results, err := col.QueryEmbedding(ctx, vectordb.Float32s(vec), min(limit, count), where, nil)
	if err != nil {
		e.Logger().Error("query failed", zap.String("collection", e.Collection()), zap.Error(err))
		return nil, err
	}
	docs := make([]vectordb.Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, fromChromem(&res))
	}
	return vectordb.Rerank(ctx, e.Reranker(), e.Logger(), query, docs), nil
}

func (e *Engine) Drop(ctx context.Context) error {
	if e.collection() == nil {
		return nil
	}
	return e.Delete(ctx)
}

func (e *Engine) Count(_ context.Context) (int, error) {
	col := e.collection()
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}

func (e *Engine) Delete(_ context.Context) error {
	if e.collection() == nil {
		return vectordb.ErrCollectionNotFound
	}
	if err := e.db.DeleteCollection(e.Collection()); err != nil {
		e.Logger().Error("delete collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Optimize(_ context.Context) error {
	return vectordb.ErrUnsupported
}

func toChromem(doc *vectordb.Document) chromem.Document {
	return chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  doc.Metadata(),
		Embedding: vectordb.Float32s(doc.Embedding),
	}
}

func fromChromem(res *chromem.Result) vectordb.Document {
	doc := vectordb.Document{
		ID:        res.ID,
		Content:   res.Content,
		Embedding: vectordb.Float64s(res.Embedding),
		Score:     float64(res.Similarity),
	}
	doc.SetMetadata(res.Metadata)
	return doc
}
