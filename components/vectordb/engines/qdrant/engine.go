package qdrant

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

const (
	payloadID      = "doc_id"
	payloadContent = "content"
)

type Engine struct {
	client *qdrant.Client
	vectordb.Options
}

var _ vectordb.VectorDB = (*Engine)(nil)

func New(client *qdrant.Client, opts ...vectordb.Option) *Engine {
	return &Engine{
		client:  client,
		Options: vectordb.NewOptions(opts...),
	}
}

// Connect creates a qdrant grpc client
func Connect(cfg *qdrant.Config, opts ...vectordb.Option) (*Engine, error) {
	clt, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	return New(clt, opts...), nil
}

func (e *Engine) Engine() vectordb.EngineType {
	return vectordb.Qdrant
}

// Close closes the Qdrant client
func (e *Engine) Close() error {
	return e.client.Close()
}

// DistanceOf maps a distance to the qdrant metric
func DistanceOf(d vectordb.Distance) qdrant.Distance {
	switch d {
	case vectordb.L2:
		return qdrant.Distance_Euclid
	case vectordb.MaxInnerProduct:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// PointID converts a content id (md5 hex) into a qdrant uuid
func PointID(contentID string) (string, error) {
	bs, err := hex.DecodeString(contentID)
	if err != nil {
		return "", err
	}
	id, err := uuid.FromBytes(bs)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (e *Engine) Create(ctx context.Context) error {
	if exists, err := e.Exists(ctx); err != nil || exists {
		return err
	}
	dim := e.Dimension()
	if dim <= 0 {
		return fmt.Errorf("qdrant collection %s: dimension is required", e.Collection())
	}
	err := e.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: e.Collection(),
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: DistanceOf(e.Distance()),
		}),
	})
	if err != nil {
		e.Logger().Error("create collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (e *Engine) Exists(ctx context.Context) (bool, error) {
	exists, err := e.client.CollectionExists(ctx, e.Collection())
	if err != nil {
		e.Logger().Error("collection exists failed", zap.String("collection", e.Collection()), zap.Error(err))
		return false, fmt.Errorf("failed to check if collection exists: %w", err)
	}
	return exists, nil
}

func (e *Engine) DocExists(ctx context.Context, doc *vectordb.Document) (bool, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return false, err
	}
	id, err := PointID(vectordb.ContentID(doc.Content))
	if err != nil {
		return false, err
	}
	points, err := e.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: e.Collection(),
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
	})
	if err != nil {
		e.Logger().Error("get point failed", zap.String("id", id), zap.Error(err))
		return false, err
	}
	return len(points) > 0, nil
}

func (e *Engine) NameExists(ctx context.Context, name string) (bool, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return false, err
	}
	count, err := e.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: e.Collection(),
		Filter:         Filter(map[string]string{vectordb.MetaName: name}),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		e.Logger().Error("count points failed", zap.String("name", name), zap.Error(err))
		return false, err
	}
	return count > 0, nil
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
	return e.upsert(ctx, list)
}

func (e *Engine) Upsert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	if err := e.prepare(ctx, docs, filters); err != nil {
		return err
	}
	return e.upsert(ctx, docs)
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

func (e *Engine) upsert(ctx context.Context, docs []vectordb.Document) error {
	batchSize := e.BatchSize()
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, doc := range docs[i:end] {
			point, err := ToPoint(&doc)
			if err != nil {
				return err
			}
			points = append(points, point)
		}
		if _, err := e.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: e.Collection(),
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			e.Logger().Error("upsert points failed", zap.String("collection", e.Collection()), zap.Error(err))
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return nil
}

// ToPoint converts a prepared document into a qdrant point
func ToPoint(doc *vectordb.Document) (*qdrant.PointStruct, error) {
	id, err := PointID(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	payload := make(map[string]*qdrant.Value, len(doc.Meta)+3)
	for k, v := range doc.Metadata() {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	payload[payloadID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.ID}}
	payload[payloadContent] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.Content}}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Vectors: qdrant.NewVectors(vectordb.Float32s(doc.Embedding)...),
		Payload: payload,
	}, nil
}

// Filter converts metadata filters into keyword match conditions
func Filter(filters map[string]string) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filters))
	for k, v := range filters {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: k,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: v},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func (e *Engine) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]vectordb.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	vec, err := vectordb.EmbedQuery(ctx, e.Embedder(), query)
	if err != nil {
		e.Logger().Error("embed query failed", zap.Error(err))
		return nil, err
	}
	points, err := e.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: e.Collection(),
		Query:          qdrant.NewQuery(vectordb.Float32s(vec)...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         Filter(filters),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		e.Logger().Error("query points failed", zap.String("collection", e.Collection()), zap.Error(err))
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	docs := make([]vectordb.Document, 0, len(points))
	for _, point := range points {
		docs = append(docs, FromPoint(point))
	}
	return vectordb.Rerank(ctx, e.Reranker(), e.Logger(), query, docs), nil
}

// FromPoint converts a scored point back into a document
func FromPoint(point *qdrant.ScoredPoint) vectordb.Document {
	doc := vectordb.Document{
		Score: float64(point.GetScore()),
	}
	meta := make(map[string]string, len(point.GetPayload()))
	for k, v := range point.GetPayload() {
		switch k {
		case payloadID:
			doc.ID = v.GetStringValue()
		case payloadContent:
			doc.Content = v.GetStringValue()
		default:
			meta[k] = v.GetStringValue()
		}
	}
	doc.SetMetadata(meta)
	if vectors := point.GetVectors(); vectors != nil {
		if dense := vectors.GetVector().GetDense(); dense != nil {
			doc.Embedding = vectordb.Float64s(dense.GetData())
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
	count, err := e.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: e.Collection(),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		e.Logger().Error("count points failed", zap.String("collection", e.Collection()), zap.Error(err))
		return 0, err
	}
	return int(count), nil
}

func (e *Engine) Delete(ctx context.Context) error {
	if err := e.client.DeleteCollection(ctx, e.Collection()); err != nil {
		e.Logger().Error("delete collection failed", zap.String("collection", e.Collection()), zap.Error(err))
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (e *Engine) Optimize(_ context.Context) error {
	return vectordb.ErrUnsupported
}
