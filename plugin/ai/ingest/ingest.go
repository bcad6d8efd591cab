// Package ingest normalizes heterogeneous extraction results into chunks,
// embeds them in batch, and writes them to the vector store.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/lectern/lectern/internal/observability"
	"github.com/lectern/lectern/plugin/ai"
	"github.com/lectern/lectern/plugin/ai/vector"
)

// Segment is one page or transcript segment of an extraction result.
type Segment struct {
	Text string `json:"text"`
}

// ExtractionResult is the document shape produced by the extraction
// collaborator. Exactly one of FullText, Pages, or Segments carries the
// document body; Text canonicalizes whichever is present.
type ExtractionResult struct {
	Success    bool      `json:"success"`
	FileName   string    `json:"file_name"`
	ExternalID string    `json:"external_id"`
	FullText   string    `json:"full_text"`
	Pages      []Segment `json:"page_texts"`
	Segments   []Segment `json:"segments"`
}

// Source resolves the display name for the document.
func (r ExtractionResult) Source() string {
	if r.FileName != "" {
		return r.FileName
	}
	if r.ExternalID != "" {
		return r.ExternalID
	}
	return "unknown"
}

// Text resolves the flat document text, preferring the full-text field and
// falling back to joining page or segment texts.
func (r ExtractionResult) Text() string {
	if r.FullText != "" {
		return r.FullText
	}
	if len(r.Pages) > 0 {
		return joinSegments(r.Pages)
	}
	if len(r.Segments) > 0 {
		return joinSegments(r.Segments)
	}
	return ""
}

func joinSegments(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n")
}

// Pipeline ingests extraction results into a vector store.
type Pipeline struct {
	embedder  ai.EmbeddingService
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline. Non-positive chunk sizes fall
// back to the defaults (800/200).
func NewPipeline(embedder ai.EmbeddingService, chunkSize, overlap int, logger *slog.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = ai.DefaultChunkSize
		overlap = ai.DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger,
	}
}

// Ingest chunks every successful document, embeds all chunks in one batch
// call, and appends them to the store. Unsuccessful documents are skipped;
// the whole batch is embedded and stored together, never per document.
// Returns the store directory.
func (p *Pipeline) Ingest(ctx context.Context, docs []ExtractionResult, storeDir string) (string, error) {
	run := observability.NewRunContext(p.logger, "ingest")

	var texts []string
	var metadata []vector.Chunk

	for _, doc := range docs {
		if !doc.Success {
			continue
		}
		source := doc.Source()
		chunks := ai.ChunkText(doc.Text(), p.chunkSize, p.overlap)
		for i, chunk := range chunks {
			texts = append(texts, chunk)
			metadata = append(metadata, vector.Chunk{
				Source:     source,
				ChunkIndex: i,
				CharCount:  len(chunk),
				Text:       chunk,
			})
		}
	}

	if len(texts) == 0 {
		run.Info("no chunks produced, nothing to ingest")
		return storeDir, nil
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", errors.Wrap(err, "embed chunk batch")
	}

	store, err := vector.Open(storeDir)
	if err != nil {
		return "", err
	}
	if err := store.Add(vectors, metadata); err != nil {
		return "", err
	}

	run.Info("ingest complete",
		slog.Int(observability.LogFieldChunkCount, len(texts)),
		slog.String(observability.LogFieldStoreDir, storeDir),
		slog.Int64(observability.LogFieldDuration, run.DurationMs()))
	return storeDir, nil
}

// SemanticSearch embeds the query and returns the topK most similar
// chunks by plain inner-product similarity. This is the base primitive
// beneath the MMR retriever; it performs no diversification.
func (p *Pipeline) SemanticSearch(ctx context.Context, query, storeDir string, topK int) ([]vector.Result, error) {
	store, err := vector.Open(storeDir)
	if err != nil {
		return nil, err
	}
	if store.Count() == 0 {
		return nil, nil
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	return store.Search(queryVec, topK)
}
