package ai

import (
	"strings"
)

const (
	// DefaultChunkSize is the maximum character count per chunk.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the character count overlap between chunks.
	DefaultChunkOverlap = 200
)

// ChunkText splits text into overlapping fixed-size windows for embedding.
// All whitespace runs are collapsed to single spaces before splitting, so
// the concatenation of the returned chunks, with overlaps removed,
// reconstructs the normalized text.
func ChunkText(text string, chunkSize, overlap int) []string {
	normalized := NormalizeWhitespace(text)
	if normalized == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	// An overlap >= chunkSize would stall the window.
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	if len(normalized) <= chunkSize {
		return []string{normalized}
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(normalized); start += step {
		end := start + chunkSize
		if end > len(normalized) {
			end = len(normalized)
		}
		chunks = append(chunks, normalized[start:end])
	}
	return chunks
}

// NormalizeWhitespace collapses all whitespace runs to single spaces.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
