package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/storage"
)

// EmbeddingCacheRepository implements storage.EmbeddingCacheRepository for BadgerDB.
type EmbeddingCacheRepository struct {
	backend *Backend
}

var _ storage.EmbeddingCacheRepository = (*EmbeddingCacheRepository)(nil)

// NewEmbeddingCacheRepository creates a new EmbeddingCacheRepository.
func NewEmbeddingCacheRepository(backend *Backend) (*EmbeddingCacheRepository, error) {
	return &EmbeddingCacheRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EmbeddingCacheRepository has no resources to release.
func (r *EmbeddingCacheRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EmbeddingCacheRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetEmbedding retrieves a cached embedding by content ID.
func (r *EmbeddingCacheRepository) GetEmbedding(ctx context.Context, id core.ID) (*core.CachedEmbedding, error) {
	var result *core.CachedEmbedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalCachedEmbedding(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// PutEmbeddings stores or replaces cached embeddings.
func (r *EmbeddingCacheRepository) PutEmbeddings(ctx context.Context, embeddings ...*core.CachedEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, embedding := range embeddings {
			if err := tx.Set(makeEmbeddingKey(embedding.Id), storage.MarshalCachedEmbedding(embedding)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountEmbeddings returns the number of cached embeddings.
func (r *EmbeddingCacheRepository) CountEmbeddings(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(embeddingPrefix + ":"))
}
