package vectordb

import (
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/embedder"
)

// DefaultBatchSize is the number of documents written per request
const DefaultBatchSize = 100

// Options holds the configuration shared by every engine
type Options struct {
	collection string
	distance   Distance
	dimension  int
	batchSize  int
	embedder   embedder.Embedder
	reranker   Reranker
	logger     *zap.Logger
}

// Option is a function type for configuring VectorDB instances.
// It follows the functional options pattern for clean and flexible configuration.
type Option func(*Options)

// NewOptions applies opts over the defaults
func NewOptions(opts ...Option) Options {
	ret := Options{
		distance:  Cosine,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&ret)
	}
	return ret
}

// WithCollection sets the collection name
func WithCollection(name string) Option {
	return func(c *Options) {
		c.collection = name
	}
}

// WithDistance sets the distance metric, cosine by default
func WithDistance(distance Distance) Option {
	return func(c *Options) {
		c.distance = distance
	}
}

// WithDimension sets the dimension of vectors to be stored.
// This must match the dimension of your embedding model:
// - text-embedding-3-small: 1536
// - text-embedding-ada-002: 1536
// - Cohere embed-multilingual-v3.0: 1024
func WithDimension(dimension int) Option {
	return func(c *Options) {
		c.dimension = dimension
	}
}

// WithBatchSize sets how many documents are written per request
func WithBatchSize(size int) Option {
	return func(c *Options) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// WithEmbedder sets the embedder used for documents and queries
func WithEmbedder(e embedder.Embedder) Option {
	return func(c *Options) {
		c.embedder = e
	}
}

// WithReranker sets an optional reranker applied to search results
func WithReranker(r Reranker) Option {
	return func(c *Options) {
		c.reranker = r
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Options) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func (o Options) Collection() string {
	return o.collection
}

func (o Options) Distance() Distance {
	return o.distance
}

// Dimension returns the configured dimension, falling back to the embedder's
func (o Options) Dimension() int {
	if o.dimension > 0 {
		return o.dimension
	}
	if o.embedder != nil {
		return o.embedder.Dimensions()
	}
	return 0
}

func (o Options) BatchSize() int {
	return o.batchSize
}

func (o Options) Embedder() embedder.Embedder {
	return o.embedder
}

func (o Options) Reranker() Reranker {
	return o.reranker
}

func (o Options) Logger() *zap.Logger {
	return o.logger
}
