package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func length(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalizeL2(t *testing.T) {
	t.Run("ScalesToUnitLength", func(t *testing.T) {
		v := NormalizeL2([]float32{3, 4})
		assert.InDelta(t, 1.0, length(v), 1e-6)
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("IdempotentOnUnitVectors", func(t *testing.T) {
		v := NormalizeL2(NormalizeL2([]float32{1, 2, 3}))
		assert.InDelta(t, 1.0, length(v), 1e-6)
	})

	t.Run("ZeroVectorUnchanged", func(t *testing.T) {
		v := NormalizeL2([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11.0, Dot([]float32{1, 2}, []float32{3, 4}), 1e-6)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder(8)

	t.Run("EmptyInput", func(t *testing.T) {
		vectors, err := embedder.EmbedBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := embedder.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		b, err := embedder.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.InDelta(t, 1.0, length(a), 1e-6)
	})
}
