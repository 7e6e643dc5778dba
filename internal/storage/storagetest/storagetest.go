// Package storagetest holds the behavior every InteractionStore must share.
package storagetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// Run exercises an InteractionStore. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.InteractionStore) {
	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		in := &storage.Interaction{
			ID:             "int-1",
			Operation:      storage.OperationGenerate,
			ProviderUsed:   "hosted-a",
			ProvidersTried: []string{"local", "hosted-a"},
			Success:        true,
			PromptTokens:   42,
			Duration:       1500 * time.Millisecond,
		}
		require.NoError(t, store.SaveInteraction(ctx, in))
		assert.False(t, in.CreatedAt.IsZero(), "CreatedAt is stamped on save")

		got, err := store.GetInteraction(ctx, "int-1")
		require.NoError(t, err)
		assert.Equal(t, "int-1", got.ID)
		assert.Equal(t, storage.OperationGenerate, got.Operation)
		assert.Equal(t, "hosted-a", got.ProviderUsed)
		assert.Equal(t, []string{"local", "hosted-a"}, got.ProvidersTried)
		assert.True(t, got.Success)
		assert.Equal(t, 42, got.PromptTokens)
		assert.Equal(t, 1500*time.Millisecond, got.Duration)
		assert.WithinDuration(t, in.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetInteraction(context.Background(), "nope")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.SaveInteraction(ctx, &storage.Interaction{ID: "dup", Operation: storage.OperationGenerate}))
		assert.Error(t, store.SaveInteraction(ctx, &storage.Interaction{ID: "dup", Operation: storage.OperationGenerate}))
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

		records := []*storage.Interaction{
			{ID: "a", Operation: storage.OperationGenerate, Success: true, CreatedAt: base},
			{ID: "b", Operation: storage.OperationAnalyzeHVAC, Success: false, Error: "No AI providers available", CreatedAt: base.Add(time.Minute)},
			{ID: "c", Operation: storage.OperationGenerate, Success: false, CreatedAt: base.Add(2 * time.Minute)},
			{ID: "d", Operation: storage.OperationAnalyzeHVAC, Success: true, CreatedAt: base.Add(3 * time.Minute)},
		}
		for _, r := range records {
			require.NoError(t, store.SaveInteraction(ctx, r))
		}

		all, err := store.ListInteractions(ctx, storage.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "c", "b", "a"}, ids(all))

		gen, err := store.ListInteractions(ctx, storage.ListOptions{Operation: storage.OperationGenerate})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, ids(gen))

		failed := false
		fails, err := store.ListInteractions(ctx, storage.ListOptions{Success: &failed})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(fails))

		page, err := store.ListInteractions(ctx, storage.ListOptions{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(page))

		past, err := store.ListInteractions(ctx, storage.ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, past)

		rest, err := store.ListInteractions(ctx, storage.ListOptions{Limit: math.MaxInt, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(rest))
	})

	t.Run("returned records are copies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		require.NoError(t, store.SaveInteraction(ctx, &storage.Interaction{
			ID:             "copy",
			Operation:      storage.OperationGenerate,
			ProvidersTried: []string{"local", "hosted-a"},
		}))

		got, err := store.GetInteraction(ctx, "copy")
		require.NoError(t, err)
		got.ProvidersTried[0] = "changed"

		listed, err := store.ListInteractions(ctx, storage.ListOptions{})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, []string{"local", "hosted-a"}, listed[0].ProvidersTried)
		listed[0].ProvidersTried[1] = "changed"

		again, err := store.GetInteraction(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, []string{"local", "hosted-a"}, again.ProvidersTried)
	})
}

func ids(interactions []*storage.Interaction) []string {
	out := make([]string, 0, len(interactions))
	for _, i := range interactions {
		out = append(out, i.ID)
	}
	return out
}
