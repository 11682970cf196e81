package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	milvusClient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

const (
	fieldID        = "id"
	fieldName      = "name"
	fieldContent   = "content"
	fieldMeta      = "meta"
	fieldEmbedding = "embedding"

	maxContentLength = 65535
)

var outputFields = []string{fieldID, fieldName, fieldContent, fieldMeta, fieldEmbedding}

type Engine struct {
	db milvusClient.Client
	vectordb.Options
}

var _ vectordb.VectorDB = (*Engine)(nil)

func New(db milvusClient.Client, opts ...vectordb.Option) *Engine {
	return &Engine{
		db:      db,
		Options: vectordb.NewOptions(opts...),
	}
}

// Connect dials a milvus server at address
func Connect(ctx context.Context, address string, opts ...vectordb.Option) (*Engine, error) {
	clt, err := milvusClient.NewClient(ctx, milvusClient.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", address, err)
	}
	return New(clt, opts...), nil
}

func (e *Engine) Engine() vectordb.EngineType {
	return vectordb.Milvus
}

// Close closes the milvus connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// MetricType maps a distance to the milvus metric
func MetricType(d vectordb.Distance) entity.MetricType {
	switch d {
	case vectordb.L2:
		return entity.L2
	case vectordb.MaxInnerProduct:
		return entity.IP
	default:
		return entity.COSINE
	}
}

func (e *Engine) Create(ctx context.Context) error {
	if exists, err := e.Exists(ctx); err != nil || exists {
		return err
	}
	dim := e.Dimension()
	if dim <= 0 {
		return fmt.Errorf("milvus collection %s: dimension is required", e.Collection())
	}
	idField := entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(32).WithIsPrimaryKey(true).WithIsAutoID(false)
	nameField := entity.NewField().WithName(fieldName).WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024)
	contentField := entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)
	metaField := entity.NewField().WithName(fieldMeta).WithDataType(entity.FieldTypeJSON)
	vectorField := entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))
	schema := entity.NewSchema().WithName(e.Collection()).WithAutoID(false).
		WithField(idField).WithField(nameField).WithField(contentField).WithField(metaField).WithField(vectorField)
	if err := e.db.CreateCollection(ctx, schema, 0); err != nil {
		e.Logger().Error("create collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	idx, err := entity.NewIndexHNSW(MetricType(e.Distance()), 8, 200)
	if err != nil {
		return err
	}
	if err := e.db.CreateIndex(ctx, e.Collection(), fieldEmbedding, idx, false, milvusClient.WithIndexName("embedding_idx")); err != nil {
		e.Logger().Error("create index failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Exists(ctx context.Context) (bool, error) {
	exists, err := e.db.HasCollection(ctx, e.Collection())
	if err != nil {
		e.Logger().Error("has collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (e *Engine) DocExists(ctx context.Context, doc *vectordb.Document) (bool, error) {
	return e.exists(ctx, fmt.Sprintf("%s == %s", fieldID, quote(vectordb.ContentID(doc.Content))))
}

func (e *Engine) NameExists(ctx context.Context, name string) (bool, error) {
	return e.exists(ctx, fmt.Sprintf("%s == %s", fieldName, quote(name)))
}

func (e *Engine) exists(ctx context.Context, expr string) (bool, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return false, err
	}
	if err := e.db.LoadCollection(ctx, e.Collection(), false); err != nil {
		return false, err
	}
	rs, err := e.db.Query(ctx, e.Collection(), nil, expr, []string{fieldID})
	if err != nil {
		e.Logger().Error("query failed", zap.String("expr", expr), zap.Error(err))
		return false, err
	}
	col := rs.GetColumn(fieldID)
	return col != nil && col.Len() > 0, nil
}

func (e *Engine) Insert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	if err := e.prepare(ctx, docs, filters); err != nil {
		return err
	}
	list := make([]vectordb.Document, 0, len(docs))
	for _, doc := range docs {
		if ok, err := e.DocExists(ctx, &doc); err != nil {
			return err
		} else if ok {
			e.Logger().Debug("document exists, skipping", zap.String("id", doc.ID))
			continue
		}
		list = append(list, doc)
	}
	return e.batches(list, func(columns []entity.Column) error {
		_, err := e.db.Insert(ctx, e.Collection(), "", columns...)
		return err
	})
}

func (e *Engine) Upsert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	if err := e.prepare(ctx, docs, filters); err != nil {
		return err
	}
	return e.batches(docs, func(columns []entity.Column) error {
		_, err := e.db.Upsert(ctx, e.Collection(), "", columns...)
		return err
	})
}

func (e *Engine) UpsertAvailable() bool {
	return true
}

func (e *Engine) prepare(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	if err := vectordb.Prepare(ctx, e.Embedder(), docs, filters); err != nil {
		e.Logger().Error("prepare documents failed", zap.Error(err))
		return err
	}
	return e.Create(ctx)
}

func (e *Engine) batches(docs []vectordb.Document, write func([]entity.Column) error) error {
	batchSize := e.BatchSize()
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		columns, err := Columns(docs[i:end])
		if err != nil {
			return err
		}
		if err := write(columns); err != nil {
			e.Logger().Error("write documents failed", zap.String("collection", e.Collection()), zap.Error(err))
			return err
		}
	}
	return nil
}

// Columns converts documents into milvus insert columns
func Columns(docs []vectordb.Document) ([]entity.Column, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	dim := len(docs[0].Embedding)
	ids := make([]string, 0, len(docs))
	names := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	metas := make([][]byte, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != dim {
			return nil, fmt.Errorf("document %s: embedding dimension %d, want %d", doc.ID, len(doc.Embedding), dim)
		}
		meta, err := json.Marshal(doc.Meta)
		if err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
		names = append(names, doc.Name)
		contents = append(contents, doc.Content)
		metas = append(metas, meta)
		vectors = append(vectors, vectordb.Float32s(doc.Embedding))
	}
	return []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldName, names),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnJSONBytes(fieldMeta, metas),
		entity.NewColumnFloatVector(fieldEmbedding, dim, vectors),
	}, nil
}

// Search performs vector similarity search on a collection.
func (e *Engine) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]vectordb.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	vec, err := vectordb.EmbedQuery(ctx, e.Embedder(), query)
	if err != nil {
		e.Logger().Error("embed query failed", zap.Error(err))
		return nil, err
	}
	if err := e.db.LoadCollection(ctx, e.Collection(), false); err != nil {
		e.Logger().Error("load collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return nil, err
	}
	searchParams, err := entity.NewIndexHNSWSearchParam(max(limit, 16))
	if err != nil {
		return nil, err
	}
	results, err := e.db.Search(ctx, e.Collection(), nil, FilterExpr(filters), outputFields,
		[]entity.Vector{entity.FloatVector(vectordb.Float32s(vec))}, fieldEmbedding, MetricType(e.Distance()), limit, searchParams)
	if err != nil {
		e.Logger().Error("search failed", zap.String("collection", e.Collection()), zap.Error(err))
		return nil, err
	}
	var docs []vectordb.Document
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			docs = append(docs, resultToDocument(&result, i))
		}
	}
	return vectordb.Rerank(ctx, e.Reranker(), e.Logger(), query, docs), nil
}

// FilterExpr converts metadata filters into a milvus boolean expression
func FilterExpr(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		if k == vectordb.MetaName {
			parts = append(parts, fmt.Sprintf("%s == %s", fieldName, quote(v)))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s[%s] == %s", fieldMeta, quote(k), quote(v)))
	}
	return strings.Join(parts, " && ")
}

func quote(v string) string {
	return strconv.Quote(v)
}

func resultToDocument(result *milvusClient.SearchResult, i int) vectordb.Document {
	var doc vectordb.Document
	if i < len(result.Scores) {
		doc.Score = float64(result.Scores[i])
	}
	if col := result.Fields.GetColumn(fieldID); col != nil {
		doc.ID, _ = col.GetAsString(i)
	}
	if col := result.Fields.GetColumn(fieldName); col != nil {
		doc.Name, _ = col.GetAsString(i)
	}
	if col := result.Fields.GetColumn(fieldContent); col != nil {
		doc.Content, _ = col.GetAsString(i)
	}
	if col := result.Fields.GetColumn(fieldMeta); col != nil {
		if v, err := col.Get(i); err == nil {
			if bs, ok := v.([]byte); ok {
				_ = json.Unmarshal(bs, &doc.Meta)
			}
		}
	}
	if col := result.Fields.GetColumn(fieldEmbedding); col != nil {
		if v, err := col.Get(i); err == nil {
			if embedding, ok := v.([]float32); ok {
				doc.Embedding = vectordb.Float64s(embedding)
			}
		}
	}
	return doc
}

func (e *Engine) Drop(ctx context.Context) error {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return err
	}
	return e.Delete(ctx)
}

func (e *Engine) Count(ctx context.Context) (int, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return 0, err
	}
	stats, err := e.db.GetCollectionStatistics(ctx, e.Collection())
	if err != nil {
		e.Logger().Error("collection statistics failed", zap.String("collection", e.Collection()), zap.Error(err))
		return 0, err
	}
	return strconv.Atoi(stats["row_count"])
}

func (e *Engine) Delete(ctx context.Context) error {
	if err := e.db.DropCollection(ctx, e.Collection()); err != nil {
		e.Logger().Error("drop collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Optimize(ctx context.Context) error {
	if _, err := e.db.ManualCompaction(ctx, e.Collection(), 0); err != nil {
		e.Logger().Error("compact failed", zap.String("collection", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}
