package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct joins chunks back together with their overlaps removed.
func reconstruct(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, chunk := range chunks[1:] {
		skip := overlap
		if skip > len(chunk) {
			skip = len(chunk)
		}
		b.WriteString(chunk[skip:])
	}
	return b.String()
}

func TestChunkText(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Nil(t, ChunkText("", 800, 200))
		assert.Nil(t, ChunkText("   \n\t  ", 800, 200))
	})

	t.Run("FitsInOneChunk", func(t *testing.T) {
		chunks := ChunkText("a short   text\nwith  gaps", 800, 200)
		require.Len(t, chunks, 1)
		assert.Equal(t, "a short text with gaps", chunks[0])
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		text := strings.Repeat("a", 2000)
		chunks := ChunkText(text, 800, 200)

		require.Len(t, chunks, 4)
		assert.Len(t, chunks[0], 800)
		assert.Len(t, chunks[1], 800)
		assert.Len(t, chunks[2], 800)
		assert.Len(t, chunks[3], 200)
	})

	t.Run("OverlapClampedBelowChunkSize", func(t *testing.T) {
		text := strings.Repeat("b", 50)
		chunks := ChunkText(text, 10, 25)
		require.NotEmpty(t, chunks)
		assert.Equal(t, text, reconstruct(chunks, 9))
	})
}

func TestChunkText_CoverageProperty(t *testing.T) {
	// Concatenating the chunks with overlaps removed must reconstruct the
	// normalized input.
	words := make([]string, 300)
	for i := range words {
		words[i] = strings.Repeat(string(rune('a'+i%26)), 1+i%7)
	}
	text := strings.Join(words, "  ")
	normalized := NormalizeWhitespace(text)

	for _, tc := range []struct{ size, overlap int }{
		{800, 200},
		{100, 30},
		{64, 0},
	} {
		chunks := ChunkText(text, tc.size, tc.overlap)
		assert.Equal(t, normalized, reconstruct(chunks, tc.overlap),
			"size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace(" a\t\tb \n\n c "))
	assert.Equal(t, "", NormalizeWhitespace(""))
}
