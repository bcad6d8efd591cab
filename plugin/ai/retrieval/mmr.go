// Package retrieval provides diversified semantic retrieval over the
// vector store using greedy Maximal Marginal Relevance re-ranking.
package retrieval

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lectern/lectern/plugin/ai"
	"github.com/lectern/lectern/plugin/ai/vector"
)

const (
	// DefaultLambda balances relevance against diversity.
	DefaultLambda = 0.5
	// DefaultFetchFactor is the similarity over-fetch multiple of topK.
	DefaultFetchFactor = 4
)

// Searcher is the plain-similarity search primitive beneath MMR.
type Searcher interface {
	SemanticSearch(ctx context.Context, query, storeDir string, topK int) ([]vector.Result, error)
}

// Options tune one MMR retrieval.
type Options struct {
	// FetchK is the similarity over-fetch size. Defaults to 4*topK.
	FetchK int
	// Lambda is the relevance weight in [0,1]; 1.0 reduces MMR to pure
	// relevance ranking. Defaults to 0.5.
	Lambda float64
}

// Retriever returns results that are individually relevant to the query
// but collectively non-redundant.
type Retriever struct {
	searcher Searcher
	embedder ai.EmbeddingService
}

// NewRetriever creates an MMR retriever over the given search primitive.
func NewRetriever(searcher Searcher, embedder ai.EmbeddingService) *Retriever {
	return &Retriever{searcher: searcher, embedder: embedder}
}

// Retrieve over-fetches candidates by plain similarity, then greedily
// re-ranks them for relevance versus diversity. Candidate texts and the
// query are re-embedded and re-normalized so selection happens in one
// consistent vector space regardless of how the store was populated.
// Returns selected chunks in selection order.
func (r *Retriever) Retrieve(ctx context.Context, query, storeDir string, topK int, opts Options) ([]vector.Chunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	fetchK := opts.FetchK
	if fetchK <= 0 {
		fetchK = DefaultFetchFactor * topK
	}
	lambda := opts.Lambda
	if lambda == 0 {
		lambda = DefaultLambda
	}

	hits, err := r.searcher.SemanticSearch(ctx, query, storeDir, fetchK)
	if err != nil {
		return nil, errors.Wrap(err, "fetch mmr candidates")
	}
	if len(hits) == 0 {
		return nil, nil
	}

	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Chunk.Text
	}
	candidates, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "embed mmr candidates")
	}
	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed mmr query")
	}

	for i := range candidates {
		candidates[i] = ai.NormalizeL2(candidates[i])
	}
	queryVec = ai.NormalizeL2(queryVec)

	selected := mmrSelect(queryVec, candidates, topK, lambda)
	chunks := make([]vector.Chunk, len(selected))
	for i, idx := range selected {
		chunks[i] = hits[idx].Chunk
	}
	return chunks, nil
}

// mmrSelect returns up to k candidate indices chosen greedily: the first
// pick is the most query-relevant candidate, each subsequent pick
// maximizes lambda*rel - (1-lambda)*max similarity to anything already
// selected.
func mmrSelect(queryVec []float32, candidates [][]float32, k int, lambda float64) []int {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}

	rel := make([]float64, n)
	for i, c := range candidates {
		rel[i] = float64(ai.Dot(queryVec, c))
	}

	first := argmax(rel)
	selected := []int{first}
	var remaining []int
	for i := 0; i < n; i++ {
		if i != first {
			remaining = append(remaining, i)
		}
	}

	for len(selected) < k && len(remaining) > 0 {
		best, bestScore := -1, 0.0
		for pos, i := range remaining {
			maxSim := float64(ai.Dot(candidates[i], candidates[selected[0]]))
			for _, j := range selected[1:] {
				if sim := float64(ai.Dot(candidates[i], candidates[j])); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*rel[i] - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best, bestScore = pos, score
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
