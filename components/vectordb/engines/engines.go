// Package engines opens any vector database engine by its type
package engines

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	cohereClient "github.com/cohere-ai/cohere-go/v2/client"
	qdrantClient "github.com/qdrant/go-client/qdrant"

	"github.com/bububa/atomic-cookbook/components/vectordb"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/chromem"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/memory"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/milvus"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/pgvector"
	"github.com/bububa/atomic-cookbook/components/vectordb/engines/qdrant"
	"github.com/bububa/atomic-cookbook/components/vectordb/reranker/cohere"
	"github.com/bububa/atomic-cookbook/components/vectordb/reranker/lexical"
)

// DefaultQdrantPort is the qdrant grpc port
const DefaultQdrantPort = 6334

var (
	FromChromem           = chromem.New
	FromPersistentChromem = chromem.NewPersistent
	FromMemory            = memory.New
	FromMilvus            = milvus.New
	FromQdrant            = qdrant.New
	FromPgVector          = pgvector.New
)

// RerankerType names the reranker applied to search results
type RerankerType string

const (
	NoReranker      RerankerType = ""
	LexicalReranker RerankerType = "lexical"
	CohereReranker  RerankerType = "cohere"
)

// Config locates the database of an engine
type Config struct {
	Engine vectordb.EngineType
	// Path of a persistent chromem database, in-memory when empty
	Path     string
	Compress bool
	// Address of a milvus or qdrant server
	Address string
	// DSN of a pgvector database
	DSN string
	// Reranker reorders search results, none when empty
	Reranker    RerankerType
	RerankModel string
	// RerankTopN caps the reranked results, 0 keeps them all
	RerankTopN int
	// Cohere serves the cohere reranker
	Cohere *cohereClient.Client
}

// NewReranker returns the configured reranker, nil when cfg.Reranker is empty
func NewReranker(cfg Config) (vectordb.Reranker, error) {
	switch cfg.Reranker {
	case NoReranker:
		return nil, nil
	case LexicalReranker:
		return lexical.New(cfg.RerankTopN), nil
	case CohereReranker:
		if cfg.Cohere == nil {
			return nil, errors.New("cohere reranker needs a cohere client")
		}
		return cohere.New(cfg.Cohere, cfg.RerankModel, cfg.RerankTopN), nil
	}
	return nil, fmt.Errorf("unknown reranker %q", cfg.Reranker)
}

// Open connects the configured engine. The close func releases the connection.
// A reranker passed in opts wins over cfg.Reranker.
func Open(ctx context.Context, cfg Config, opts ...vectordb.Option) (vectordb.VectorDB, func(), error) {
	reranker, err := NewReranker(cfg)
	if err != nil {
		return nil, nil, err
	}
	if reranker != nil {
		opts = append([]vectordb.Option{vectordb.WithReranker(reranker)}, opts...)
	}
	noop := func() {}
	switch cfg.Engine {
	case vectordb.Memory:
		return FromMemory(memory.NewStore(), opts...), noop, nil
	case vectordb.Chromem, "":
		if cfg.Path == "" {
			return FromChromem(nil, opts...), noop, nil
		}
		db, err := FromPersistentChromem(cfg.Path, cfg.Compress, opts...)
		if err != nil {
			return nil, nil, err
		}
		return db, noop, nil
	case vectordb.Milvus:
		db, err := milvus.Connect(ctx, cfg.Address, opts...)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case vectordb.Qdrant:
		host, port, err := SplitHostPort(cfg.Address, DefaultQdrantPort)
		if err != nil {
			return nil, nil, err
		}
		db, err := qdrant.Connect(&qdrantClient.Config{Host: host, Port: port}, opts...)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case vectordb.PgVector:
		db, err := pgvector.Connect(ctx, cfg.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown vectordb engine %q", cfg.Engine)
}

// SplitHostPort splits address, localhost and defaultPort fill the missing parts
func SplitHostPort(address string, defaultPort int) (string, int, error) {
	if address == "" {
		return "localhost", defaultPort, nil
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// no port
		return address, defaultPort, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", address, err)
	}
	return host, p, nil
}
