// Package cache decorates an ai.Embedder with a persistent vector cache.
//
// Search results repeat across invocations far more often than user
// messages do, so candidate texts are looked up by content ID before the
// wrapped embedder is called. Cache failures are logged and never fail an
// embedding request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/metrics"
	"github.com/poiesic/linkrank/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Embedder caches embeddings produced by an inner ai.Embedder.
type Embedder struct {
	inner      ai.Embedder
	repo       storage.EmbeddingCacheRepository
	model      string
	cacheTotal *prometheus.CounterVec
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		e.logger = logger
	}
}

// WithCacheCounter sets the hit/miss counter. It must carry a single
// "result" label. A nil counter disables counting.
func WithCacheCounter(counter *prometheus.CounterVec) Option {
	return func(e *Embedder) {
		e.cacheTotal = counter
	}
}

// New creates a caching decorator. model scopes cache entries so vectors
// from different embedding models never mix.
func New(inner ai.Embedder, repo storage.EmbeddingCacheRepository, model string, opts ...Option) *Embedder {
	e := &Embedder{
		inner:      inner,
		repo:       repo,
		model:      model,
		cacheTotal: metrics.EmbeddingCacheTotal,
		logger:     slog.Default().With("component", "embedding-cache"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the cache ID for text under model.
func Key(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}

// EmbedText returns a cached embedding or calls the inner embedder.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	id := Key(e.model, text)

	if vector, ok := e.lookup(ctx, id); ok {
		e.incCache("hit")
		return vector, nil
	}
	e.incCache("miss")

	vector, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	e.store(ctx, &core.CachedEmbedding{Id: id, Model: e.model, Vector: vector})
	return vector, nil
}

// EmbedTexts serves cached texts locally and sends only the misses to the
// inner embedder, in one batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	ids := make([]core.ID, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		ids[i] = Key(e.model, text)
		if vector, ok := e.lookup(ctx, ids[i]); ok {
			e.incCache("hit")
			results[i] = vector
			continue
		}
		e.incCache("miss")
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	vectors, err := e.inner.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d texts", len(vectors), len(missing))
	}

	entries := make([]*core.CachedEmbedding, len(vectors))
	for j, vector := range vectors {
		i := missingIdx[j]
		results[i] = vector
		entries[j] = &core.CachedEmbedding{Id: ids[i], Model: e.model, Vector: vector}
	}
	e.store(ctx, entries...)

	return results, nil
}

func (e *Embedder) lookup(ctx context.Context, id core.ID) ([]float32, bool) {
	entry, err := e.repo.GetEmbedding(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("failed to read cached embedding", "id", id, "err", err)
		}
		return nil, false
	}
	if entry.Model != e.model || len(entry.Vector) == 0 {
		return nil, false
	}
	return entry.Vector, true
}

func (e *Embedder) store(ctx context.Context, entries ...*core.CachedEmbedding) {
	if err := e.repo.PutEmbeddings(ctx, entries...); err != nil {
		e.logger.Warn("failed to cache embeddings", "count", len(entries), "err", err)
	}
}

func (e *Embedder) incCache(result string) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(result).Inc()
	}
}
