package badger

import (
	"context"
	"testing"

	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache(t *testing.T) {
	turnRepo, cacheRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		cacheRepo.Close()
		turnRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	id := core.IDFromContent("embeddinggemma\x00Go Tour An interactive introduction")

	_, err = cacheRepo.GetEmbedding(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	entry := &core.CachedEmbedding{Id: id, Model: "embeddinggemma", Vector: []float32{0.25, 0.5, -1}}
	require.NoError(t, cacheRepo.PutEmbeddings(ctx, entry))

	got, err := cacheRepo.GetEmbedding(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	t.Run("replace", func(t *testing.T) {
		updated := &core.CachedEmbedding{Id: id, Model: "embeddinggemma", Vector: []float32{1}}
		require.NoError(t, cacheRepo.PutEmbeddings(ctx, updated))

		got, err := cacheRepo.GetEmbedding(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []float32{1}, got.Vector)
	})

	t.Run("count", func(t *testing.T) {
		require.NoError(t, cacheRepo.PutEmbeddings(ctx,
			&core.CachedEmbedding{Id: core.ID(1), Model: "m", Vector: []float32{1}},
			&core.CachedEmbedding{Id: core.ID(2), Model: "m", Vector: []float32{2}},
		))

		count, err := cacheRepo.CountEmbeddings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("empty put", func(t *testing.T) {
		assert.NoError(t, cacheRepo.PutEmbeddings(ctx))
	})
}
