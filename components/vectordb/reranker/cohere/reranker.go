package cohere

import (
	"context"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/bububa/atomic-cookbook/components/vectordb"
)

// DefaultModel is the default cohere rerank model
const DefaultModel = "rerank-multilingual-v3.0"

// Reranker reorders documents with the cohere rerank API
type Reranker struct {
	*cohereClient.Client
	model string
	topN  int
}

var _ vectordb.Reranker = (*Reranker)(nil)

func New(clt *cohereClient.Client, model string, topN int) *Reranker {
	if model == "" {
		model = DefaultModel
	}
	return &Reranker{
		Client: clt,
		model:  model,
		topN:   topN,
	}
}

func (r *Reranker) Rerank(ctx context.Context, query string, docs []vectordb.Document) ([]vectordb.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}
	items := make([]*cohere.RerankRequestDocumentsItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, &cohere.RerankRequestDocumentsItem{String: doc.Content})
	}
	req := cohere.RerankRequest{
		Model:     &r.model,
		Query:     query,
		Documents: items,
	}
	if r.topN > 0 {
		topN := min(r.topN, len(docs))
		req.TopN = &topN
	}
	resp, err := r.Client.Rerank(ctx, &req)
	if err != nil {
		return nil, err
	}
	ret := make([]vectordb.Document, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res == nil || res.Index < 0 || res.Index >= len(docs) {
			continue
		}
		doc := docs[res.Index]
		doc.Score = res.RelevanceScore
		ret = append(ret, doc)
	}
	return ret, nil
}
