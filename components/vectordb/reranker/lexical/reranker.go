package lexical

import (
	"context"
	"sort"
	"strings"

	"github.com/bububa/atomic-cookbook/components/embedder/splitter"
	"github.com/bububa/atomic-cookbook/components/vectordb"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "with": {}, "from": {}, "was": {},
	"are": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {}, "you": {}, "she": {},
	"they": {}, "what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
}

// Reranker blends the vector score with the share of query terms found in each document
type Reranker struct {
	// weight of the term overlap, the vector score gets 1-weight
	weight float64
	topN   int
}

var _ vectordb.Reranker = (*Reranker)(nil)

// New returns a reranker weighting overlap and vector score equally
func New(topN int) *Reranker {
	return &Reranker{
		weight: 0.5,
		topN:   topN,
	}
}

// WithWeight sets the overlap weight in [0, 1]
func (r *Reranker) WithWeight(w float64) *Reranker {
	r.weight = max(0, min(1, w))
	return r
}

func (r *Reranker) Rerank(_ context.Context, query string, docs []vectordb.Document) ([]vectordb.Document, error) {
	ret := make([]vectordb.Document, len(docs))
	copy(ret, docs)
	terms := Terms(query)
	if len(terms) > 0 {
		for idx := range ret {
			overlap := Overlap(terms, Terms(ret[idx].Content))
			ret[idx].Score = (1-r.weight)*ret[idx].Score + r.weight*overlap
		}
	}
	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].Score > ret[j].Score
	})
	if r.topN > 0 && r.topN < len(ret) {
		ret = ret[:r.topN]
	}
	return ret, nil
}

// Terms returns the lowercased words of text without stopwords and short words
func Terms(text string) []string {
	words := splitter.Words(strings.ToLower(text))
	ret := words[:0]
	for _, w := range words {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		ret = append(ret, w)
	}
	return ret
}

// Overlap returns the ratio of unique query terms found in the document terms
func Overlap(query []string, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		docSet[t] = struct{}{}
	}
	unique := make(map[string]struct{}, len(query))
	var matched int
	for _, t := range query {
		if _, ok := unique[t]; ok {
			continue
		}
		unique[t] = struct{}{}
		if _, ok := docSet[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(unique))
}
