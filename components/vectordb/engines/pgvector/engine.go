package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Engine stores documents in a postgres table with a pgvector column.
// The collection name is used as the table name.
type Engine struct {
	pool *pgxpool.Pool
	vectordb.Options
}

var _ vectordb.VectorDB = (*Engine)(nil)

func New(pool *pgxpool.Pool, opts ...vectordb.Option) (*Engine, error) {
	ret := &Engine{
		pool:    pool,
		Options: vectordb.NewOptions(opts...),
	}
	if !tableNameRe.MatchString(ret.Collection()) {
		return nil, fmt.Errorf("invalid table name %q", ret.Collection())
	}
	return ret, nil
}

// Connect opens a connection pool for dsn
func Connect(ctx context.Context, dsn string, opts ...vectordb.Option) (*Engine, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	ret, err := New(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return ret, nil
}

func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func (e *Engine) Engine() vectordb.EngineType {
	return vectordb.PgVector
}

// Operator returns the pgvector distance operator for d
func Operator(d vectordb.Distance) string {
	switch d {
	case vectordb.L2:
		return "<->"
	case vectordb.MaxInnerProduct:
		return "<#>"
	default:
		return "<=>"
	}
}

// ScoreExpr converts the raw operator result into a score where higher is better
func ScoreExpr(d vectordb.Distance) string {
	op := Operator(d)
	switch d {
	case vectordb.L2:
		return fmt.Sprintf("1 / (1 + (embedding %s $1))", op)
	case vectordb.MaxInnerProduct:
		return fmt.Sprintf("(embedding %s $1) * -1", op)
	default:
		return fmt.Sprintf("1 - (embedding %s $1)", op)
	}
}

func opsClass(d vectordb.Distance) string {
	switch d {
	case vectordb.L2:
		return "vector_l2_ops"
	case vectordb.MaxInnerProduct:
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

func (e *Engine) Create(ctx context.Context) error {
	dim := e.Dimension()
	if dim <= 0 {
		return fmt.Errorf("pgvector table %s: dimension is required", e.Collection())
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT,
			content TEXT,
			meta JSONB,
			embedding vector(%d)
		)`, e.Collection(), dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_name_idx ON %s (name)", e.Collection(), e.Collection()),
	}
	for _, stmt := range stmts {
		if _, err := e.pool.Exec(ctx, stmt); err != nil {
			e.Logger().Error("create table failed", zap.String("table", e.Collection()), zap.Error(err))
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (e *Engine) Exists(ctx context.Context) (bool, error) {
	var exists bool
	if err := e.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", e.Collection()).Scan(&exists); err != nil {
		e.Logger().Error("table exists failed", zap.String("table", e.Collection()), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (e *Engine) DocExists(ctx context.Context, doc *vectordb.Document) (bool, error) {
	return e.exists(ctx, "id", vectordb.ContentID(doc.Content))
}

func (e *Engine) NameExists(ctx context.Context, name string) (bool, error) {
	return e.exists(ctx, "name", name)
}

func (e *Engine) exists(ctx context.Context, column string, value string) (bool, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return false, err
	}
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", e.Collection(), column)
	if err := e.pool.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		e.Logger().Error("exists query failed", zap.String("column", column), zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (e *Engine) Insert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	return e.write(ctx, docs, filters, "DO NOTHING")
}

func (e *Engine) Upsert(ctx context.Context, docs []vectordb.Document, filters map[string]string) error {
	return e.write(ctx, docs, filters, `DO UPDATE SET
			name = EXCLUDED.name,
			content = EXCLUDED.content,
			meta = EXCLUDED.meta,
			embedding = EXCLUDED.embedding`)
}

func (e *Engine) UpsertAvailable() bool {
	return true
}

func (e *Engine) write(ctx context.Context, docs []vectordb.Document, filters map[string]string, onConflict string) error {
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
	stmt := fmt.Sprintf(`INSERT INTO %s (id, name, content, meta, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) %s`, e.Collection(), onConflict)
	batchSize := e.BatchSize()
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		batch := &pgx.Batch{}
		for _, doc := range docs[i:end] {
			meta, err := json.Marshal(doc.Meta)
			if err != nil {
				return err
			}
			batch.Queue(stmt, doc.ID, doc.Name, doc.Content, meta, pgvector.NewVector(vectordb.Float32s(doc.Embedding)))
		}
		if err := e.pool.SendBatch(ctx, batch).Close(); err != nil {
			e.Logger().Error("write documents failed", zap.String("table", e.Collection()), zap.Error(err))
			return fmt.Errorf("failed to insert documents: %w", err)
		}
	}
	return nil
}

// FilterClause converts metadata filters into a where clause. Arguments start at offset.
func FilterClause(filters map[string]string, offset int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters)*2)
	for k, v := range filters {
		if k == vectordb.MetaName {
			args = append(args, v)
			parts = append(parts, fmt.Sprintf("name = $%d", offset+len(args)))
			continue
		}
		args = append(args, k, v)
		parts = append(parts, fmt.Sprintf("meta ->> $%d = $%d", offset+len(args)-1, offset+len(args)))
	}
	return " WHERE " + strings.Join(parts, " AND "), args
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
	where, args := FilterClause(filters, 2)
	stmt := fmt.Sprintf(`SELECT id, name, content, meta, embedding::text, %s AS score
		FROM %s%s
		ORDER BY embedding %s $1
		LIMIT $2`, ScoreExpr(e.Distance()), e.Collection(), where, Operator(e.Distance()))
	rows, err := e.pool.Query(ctx, stmt, append([]any{pgvector.NewVector(vectordb.Float32s(vec)), limit}, args...)...)
	if err != nil {
		e.Logger().Error("query documents failed", zap.String("table", e.Collection()), zap.Error(err))
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()
	var docs []vectordb.Document
	for rows.Next() {
		var (
			doc       vectordb.Document
			name      *string
			meta      []byte
			embedding string
		)
		if err := rows.Scan(&doc.ID, &name, &doc.Content, &meta, &embedding, &doc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if name != nil {
			doc.Name = *name
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &doc.Meta)
		}
		var v pgvector.Vector
		if err := v.Scan(embedding); err == nil {
			doc.Embedding = vectordb.Float64s(v.Slice())
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectordb.Rerank(ctx, e.Reranker(), e.Logger(), query, docs), nil
}

func (e *Engine) Drop(ctx context.Context) error {
	if _, err := e.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", e.Collection())); err != nil {
		e.Logger().Error("drop table failed", zap.String("table", e.Collection()), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Count(ctx context.Context) (int, error) {
	if ok, err := e.Exists(ctx); err != nil || !ok {
		return 0, err
	}
	var count int
	if err := e.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", e.Collection())).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) Delete(ctx context.Context) error {
	if ok, err := e.Exists(ctx); err != nil {
		return err
	} else if !ok {
		return vectordb.ErrCollectionNotFound
	}
	return e.Drop(ctx)
}

// Optimize builds an ivfflat index for the configured distance
func (e *Engine) Optimize(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding %s)
		WITH (lists = 100)`, e.Collection(), e.Collection(), opsClass(e.Distance()))
	if _, err := e.pool.Exec(ctx, stmt); err != nil {
		e.Logger().Error("create index failed", zap.String("table", e.Collection()), zap.Error(err))
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
