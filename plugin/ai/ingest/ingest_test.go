package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern/lectern/plugin/ai"
)

func TestExtractionResult_Text(t *testing.T) {
	t.Run("PrefersFullText", func(t *testing.T) {
		r := ExtractionResult{
			FullText: "full",
			Pages:    []Segment{{Text: "page"}},
		}
		assert.Equal(t, "full", r.Text())
	})

	t.Run("FallsBackToPages", func(t *testing.T) {
		r := ExtractionResult{Pages: []Segment{{Text: "one"}, {Text: "two"}}}
		assert.Equal(t, "one\ntwo", r.Text())
	})

	t.Run("FallsBackToSegments", func(t *testing.T) {
		r := ExtractionResult{Segments: []Segment{{Text: "seg"}}}
		assert.Equal(t, "seg", r.Text())
	})

	t.Run("EmptyWhenNothingPresent", func(t *testing.T) {
		assert.Equal(t, "", ExtractionResult{}.Text())
	})
}

func TestExtractionResult_Source(t *testing.T) {
	assert.Equal(t, "notes.pdf", ExtractionResult{FileName: "notes.pdf"}.Source())
	assert.Equal(t, "vid-42", ExtractionResult{ExternalID: "vid-42"}.Source())
	assert.Equal(t, "unknown", ExtractionResult{}.Source())
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()
	embedder := ai.NewMockEmbedder(8)
	p := NewPipeline(embedder, 800, 200, nil)

	t.Run("SkipsUnsuccessfulDocuments", func(t *testing.T) {
		dir := t.TempDir()
		docs := []ExtractionResult{
			{Success: false, FileName: "failed.pdf", FullText: strings.Repeat("x", 100)},
			{Success: true, FileName: "ok.pdf", FullText: "short document"},
		}
		_, err := p.Ingest(ctx, docs, dir)
		require.NoError(t, err)

		results, err := p.SemanticSearch(ctx, "short document", dir, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "ok.pdf", results[0].Chunk.Source)
	})

	t.Run("EmptyBatchLeavesStoreEmpty", func(t *testing.T) {
		dir := t.TempDir()
		_, err := p.Ingest(ctx, []ExtractionResult{{Success: true}}, dir)
		require.NoError(t, err)

		results, err := p.SemanticSearch(ctx, "anything", dir, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestPipeline_IngestEndToEnd(t *testing.T) {
	ctx := context.Background()
	embedder := ai.NewMockEmbedder(8)
	p := NewPipeline(embedder, 800, 200, nil)
	dir := t.TempDir()

	docs := []ExtractionResult{
		{Success: true, FileName: "long.txt", FullText: strings.Repeat("a", 2000)},
		{Success: true, FileName: "other.txt", FullText: "completely unrelated zebra migration patterns"},
	}
	_, err := p.Ingest(ctx, docs, dir)
	require.NoError(t, err)

	// 2000 chars at size 800 / overlap 200 yield windows
	// 0-800, 600-1400, 1200-2000, 1800-2000.
	results, err := p.SemanticSearch(ctx, strings.Repeat("a", 20), dir, 10)
	require.NoError(t, err)
	require.Len(t, results, 5)

	wantLens := map[int]int{0: 800, 1: 800, 2: 800, 3: 200}
	seen := 0
	for _, r := range results[:4] {
		assert.Equal(t, "long.txt", r.Chunk.Source)
		assert.Equal(t, wantLens[r.Chunk.ChunkIndex], r.Chunk.CharCount)
		seen++
	}
	assert.Equal(t, 4, seen)
	assert.Equal(t, "other.txt", results[4].Chunk.Source)
	assert.Greater(t, results[3].Score, results[4].Score)
}
