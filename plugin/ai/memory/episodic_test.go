package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodicStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenEpisodicStore(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)
	defer store.Close()

	t.Run("RecordAndList", func(t *testing.T) {
		require.NoError(t, store.Record(ctx, Episode{
			Kind:      "notes",
			UserInput: "lecture 3 slides",
			Outcome:   "success",
			Summary:   "generated 4 sections",
		}))
		require.NoError(t, store.Record(ctx, Episode{
			Kind:    "chat",
			Outcome: "failure",
			Summary: "backend unavailable",
		}))

		episodes, err := store.List(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, episodes, 2)
		assert.NotZero(t, episodes[0].ID)
		assert.False(t, episodes[0].Timestamp.IsZero())
	})

	t.Run("FilterByKind", func(t *testing.T) {
		episodes, err := store.List(ctx, "notes", 10)
		require.NoError(t, err)
		require.Len(t, episodes, 1)
		assert.Equal(t, "generated 4 sections", episodes[0].Summary)
	})

	t.Run("LimitApplied", func(t *testing.T) {
		episodes, err := store.List(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, episodes, 1)
	})
}
