package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern/lectern/plugin/ai"
	"github.com/lectern/lectern/plugin/ai/vector"
)

// fakeSearcher returns canned similarity hits.
type fakeSearcher struct {
	hits []vector.Result
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, _, _ string, topK int) ([]vector.Result, error) {
	if topK > len(f.hits) {
		topK = len(f.hits)
	}
	return f.hits[:topK], nil
}

func pinned(embedder *ai.MockEmbedder, text string, v []float32) vector.Result {
	embedder.Set(text, v)
	return vector.Result{Chunk: vector.Chunk{Source: "doc", Text: text, CharCount: len(text)}}
}

func TestRetriever_RelevanceOnly(t *testing.T) {
	ctx := context.Background()
	embedder := ai.NewMockEmbedder(3)
	embedder.Set("query", []float32{1, 0, 0})

	searcher := &fakeSearcher{hits: []vector.Result{
		pinned(embedder, "best", []float32{1, 0, 0}),
		pinned(embedder, "good", []float32{0.8, 0.6, 0}),
		pinned(embedder, "fair", []float32{0.5, 0.5, 0.7}),
		pinned(embedder, "poor", []float32{0, 1, 0}),
	}}
	r := NewRetriever(searcher, embedder)

	// Lambda 1.0 reduces MMR to pure relevance ranking.
	chunks, err := r.Retrieve(ctx, "query", "", 3, Options{Lambda: 1.0})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "best", chunks[0].Text)
	assert.Equal(t, "good", chunks[1].Text)
	assert.Equal(t, "fair", chunks[2].Text)
}

func TestRetriever_Diversity(t *testing.T) {
	ctx := context.Background()
	embedder := ai.NewMockEmbedder(3)
	embedder.Set("query", []float32{1, 0, 0})

	// Two near-duplicate high-relevance candidates and one distinct,
	// lower-relevance candidate.
	searcher := &fakeSearcher{hits: []vector.Result{
		pinned(embedder, "dup one", []float32{0.99, 0.14, 0}),
		pinned(embedder, "dup two", []float32{0.99, 0.13, 0.05}),
		pinned(embedder, "distinct", []float32{0.6, 0, 0.8}),
	}}
	r := NewRetriever(searcher, embedder)

	chunks, err := r.Retrieve(ctx, "query", "", 2, Options{Lambda: 0.2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "dup one", chunks[0].Text)
	assert.Equal(t, "distinct", chunks[1].Text)
}

func TestRetriever_EdgeCases(t *testing.T) {
	ctx := context.Background()
	embedder := ai.NewMockEmbedder(3)
	embedder.Set("query", []float32{1, 0, 0})

	t.Run("NoCandidates", func(t *testing.T) {
		r := NewRetriever(&fakeSearcher{}, embedder)
		chunks, err := r.Retrieve(ctx, "query", "", 5, Options{})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("TopKOne", func(t *testing.T) {
		searcher := &fakeSearcher{hits: []vector.Result{
			pinned(embedder, "second", []float32{0.7, 0.7, 0}),
			pinned(embedder, "top", []float32{1, 0, 0}),
		}}
		r := NewRetriever(searcher, embedder)

		chunks, err := r.Retrieve(ctx, "query", "", 1, Options{})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "top", chunks[0].Text)
	})

	t.Run("TopKExceedsCandidates", func(t *testing.T) {
		searcher := &fakeSearcher{hits: []vector.Result{
			pinned(embedder, "only", []float32{1, 0, 0}),
		}}
		r := NewRetriever(searcher, embedder)

		chunks, err := r.Retrieve(ctx, "query", "", 10, Options{})
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	})
}

func TestMMRSelect_FirstPickIsArgmax(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},
		{1, 0},
		{0.7, 0.7},
	}
	selected := mmrSelect(query, candidates, 1, 0.5)
	require.Equal(t, []int{1}, selected)
}
