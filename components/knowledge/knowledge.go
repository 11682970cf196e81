// Package knowledge loads documents into a vector database and retrieves references for agents
package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bububa/atomic-cookbook/components/document"
	"github.com/bububa/atomic-cookbook/components/document/parsers"
	"github.com/bububa/atomic-cookbook/components/embedder"
	"github.com/bububa/atomic-cookbook/components/embedder/splitter"
	"github.com/bububa/atomic-cookbook/components/vectordb"
)

// DefaultNumDocuments is the number of references returned by Search
const DefaultNumDocuments = 5

// ParseFunc converts a loaded document into text
type ParseFunc func(context.Context, *document.Document) (string, error)

// Base is a knowledge base backed by a vector database
type Base struct {
	db           vectordb.VectorDB
	sources      []document.Loader
	chunker      embedder.Chunker
	parse        ParseFunc
	limiter      *rate.Limiter
	batchSize    int
	numDocuments int
	filters      map[string]string
	progress     ProgressFunc
	logger       *zap.Logger
}

// ProgressFunc is called by Load after each source, err is nil when the source loaded
type ProgressFunc func(source string, documents int, err error)

type Option func(*Base)

// WithSources sets the document sources loaded by Load
func WithSources(sources ...document.Loader) Option {
	return func(b *Base) {
		b.sources = append(b.sources, sources...)
	}
}

// WithChunker sets the chunker, a sentence chunker is used by default
func WithChunker(chunker embedder.Chunker) Option {
	return func(b *Base) {
		b.chunker = chunker
	}
}

// WithParser replaces the content type based parser
func WithParser(fn ParseFunc) Option {
	return func(b *Base) {
		b.parse = fn
	}
}

// WithRateLimit limits how many document batches are embedded per second
func WithRateLimit(perSecond float64, burst int) Option {
	return func(b *Base) {
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithBatchSize sets how many documents are embedded per write
func WithBatchSize(size int) Option {
	return func(b *Base) {
		if size > 0 {
			b.batchSize = size
		}
	}
}

// WithNumDocuments sets the number of documents returned by Search
func WithNumDocuments(n int) Option {
	return func(b *Base) {
		if n > 0 {
			b.numDocuments = n
		}
	}
}

// WithFilters sets metadata stored with every document and used to filter searches
func WithFilters(filters map[string]string) Option {
	return func(b *Base) {
		b.filters = filters
	}
}

// WithProgress reports Load progress
func WithProgress(fn ProgressFunc) Option {
	return func(b *Base) {
		b.progress = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func New(db vectordb.VectorDB, opts ...Option) *Base {
	ret := &Base{
		db:           db,
		parse:        parsers.Parse,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		batchSize:    vectordb.DefaultBatchSize,
		numDocuments: DefaultNumDocuments,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.chunker == nil {
		ret.chunker = splitter.New(splitter.SentenceUnit)
	}
	return ret
}

func (b *Base) DB() vectordb.VectorDB {
	return b.db
}

// Sources returns the document sources loaded by Load
func (b *Base) Sources() []document.Loader {
	return b.sources
}

// LoadOptions controls how Load writes documents
type LoadOptions struct {
	// Recreate drops the collection before loading
	Recreate bool
	// Upsert replaces documents with the same content id when the database supports it
	Upsert bool
	// SkipExisting skips documents whose content is already stored
	SkipExisting bool
}

// Load reads, chunks and stores every source. A source that fails is logged and skipped.
// It returns the number of documents written.
func (b *Base) Load(ctx context.Context, opts LoadOptions) (int, error) {
	if opts.Recreate {
		b.logger.Info("dropping collection")
		if err := b.db.Drop(ctx); err != nil {
			return 0, fmt.Errorf("drop collection: %w", err)
		}
	}
	if err := b.db.Create(ctx); err != nil {
		return 0, fmt.Errorf("create collection: %w", err)
	}
	var total int
	for _, src := range b.sources {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := b.LoadSource(ctx, src, opts)
		if b.progress != nil {
			b.progress(src.Name(), n, err)
		}
		if err != nil {
			b.logger.Error("load source failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		total += n
	}
	b.logger.Info("knowledge base loaded", zap.Int("documents", total))
	return total, nil
}

// LoadSource reads a single source into the database
func (b *Base) LoadSource(ctx context.Context, src document.Loader, opts LoadOptions) (int, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	text, err := b.parse(ctx, raw)
	if err != nil {
		return 0, err
	}
	docs := b.Documents(src.Name(), text, raw.Meta())
	if opts.SkipExisting && !opts.Upsert {
		docs, err = b.filterExisting(ctx, docs)
		if err != nil {
			return 0, err
		}
	}
	upsert := opts.Upsert && b.db.UpsertAvailable()
	for i := 0; i < len(docs); i += b.batchSize {
		end := min(i+b.batchSize, len(docs))
		if err := b.limiter.Wait(ctx); err != nil {
			return i, err
		}
		if upsert {
			err = b.db.Upsert(ctx, docs[i:end], b.filters)
		} else {
			err = b.db.Insert(ctx, docs[i:end], b.filters)
		}
		if err != nil {
			return i, err
		}
	}
	b.logger.Debug("source loaded", zap.String("source", src.Name()), zap.Int("documents", len(docs)))
	return len(docs), nil
}

// Documents chunks text into documents named <name>_<n>, n starting at 1
func (b *Base) Documents(name string, text string, meta map[string]string) []vectordb.Document {
	chunks := b.chunker.Chunk(text)
	docs := make([]vectordb.Document, 0, len(chunks))
	for idx, chunk := range chunks {
		docMeta := make(map[string]string, len(meta)+1)
		for k, v := range meta {
			docMeta[k] = v
		}
		docMeta["chunk"] = strconv.Itoa(idx + 1)
		docs = append(docs, vectordb.Document{
			Name:    fmt.Sprintf("%s_%d", name, idx+1),
			Content: chunk.Text,
			Meta:    docMeta,
		})
	}
	return docs
}

func (b *Base) filterExisting(ctx context.Context, docs []vectordb.Document) ([]vectordb.Document, error) {
	ret := docs[:0]
	for _, doc := range docs {
		exists, err := b.db.DocExists(ctx, &doc)
		if err != nil {
			return nil, err
		}
		if exists {
			b.logger.Debug("skipping existing document", zap.String("name", doc.Name))
			continue
		}
		ret = append(ret, doc)
	}
	return ret, nil
}

// Search returns the documents most relevant to query
func (b *Base) Search(ctx context.Context, query string) ([]vectordb.Document, error) {
	return b.db.Search(ctx, query, b.numDocuments, b.filters)
}

// References renders the search results for query as a context block.
// It returns an empty string when nothing relevant is stored.
func (b *Base) References(ctx context.Context, query string) (string, error) {
	docs, err := b.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatReferences(docs), nil
}

// FormatReferences renders documents as numbered references
func FormatReferences(docs []vectordb.Document) string {
	var sb strings.Builder
	for idx, doc := range docs {
		if idx > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", idx+1, doc.Name, strings.TrimSpace(doc.Content))
	}
	return sb.String()
}
