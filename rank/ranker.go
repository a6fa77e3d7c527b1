// Package rank orders search candidates by semantic similarity to the
// user's message.
//
// The message and every candidate (title + " " + description) are embedded,
// candidates concurrently on a worker pool. Candidates are sorted by cosine
// similarity, descending, with ties kept in provider order, and the first
// topN are returned. Ranking is all-or-nothing: if any embedding fails the
// whole call fails with core.ErrEmbeddingFailure.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/metrics"
)

// DefaultTopN is used when Rank is called with a non-positive topN.
const DefaultTopN = 5

const excerptLength = 80

// Ranker scores candidates against a message.
type Ranker struct {
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithPoolSize sets the number of concurrent candidate embeddings.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Ranker) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a new ranker.
func NewRanker(embedder ai.Embedder, opts ...Option) (*Ranker, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	r := &Ranker{
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default().With("component", "rank"),
	}

	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}

	return r, nil
}

// Release releases the worker pool.
// The ranker should not be used after calling Release.
func (r *Ranker) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Rank returns at most topN candidates ordered by similarity to message.
// candidates is not modified.
func (r *Ranker) Rank(ctx context.Context, message string, candidates []core.Candidate, topN int) (core.RankedResultSet, error) {
	return r.RankWithMonitor(ctx, message, candidates, topN, nil)
}

// RankWithMonitor ranks like Rank and reports progress to monitor.
func (r *Ranker) RankWithMonitor(ctx context.Context, message string, candidates []core.Candidate, topN int, monitor RankMonitor) (core.RankedResultSet, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	start := time.Now()
	defer func() {
		metrics.RankDuration.Observe(time.Since(start).Seconds())
	}()

	monitor.Start(message, len(candidates))

	if len(candidates) == 0 {
		ranked := core.RankedResultSet{}
		monitor.Finish(ranked)
		metrics.ObserveStage(metrics.StageRank, metrics.OutcomeEmpty)
		return ranked, nil
	}

	messageVector, err := r.embedder.EmbedText(ctx, message)
	if err != nil {
		return nil, r.fail(message, fmt.Errorf("%w: message: %w", core.ErrEmbeddingFailure, err))
	}
	monitor.AfterMessageEmbedding(messageVector)

	vectors, err := r.embedCandidates(ctx, candidates)
	if err != nil {
		return nil, r.fail(message, err)
	}

	scored := make([]core.ScoredCandidate, len(candidates))
	for i, candidate := range candidates {
		scored[i] = core.ScoredCandidate{
			Candidate:  candidate,
			Similarity: CosineSimilarity(messageVector, vectors[i]),
			Position:   i,
		}
		monitor.CandidateScored(scored[i])
	}

	slices.SortStableFunc(scored, func(a, b core.ScoredCandidate) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})

	limit := min(len(scored), topN)
	ranked := make(core.RankedResultSet, limit)
	for i := range limit {
		ranked[i] = scored[i].Candidate
	}

	r.logger.Debug("ranked candidates", "candidates", len(candidates), "returned", limit)
	monitor.Finish(ranked)
	metrics.ObserveStage(metrics.StageRank, metrics.OutcomeOK)
	return ranked, nil
}

// embedCandidates fetches every candidate embedding concurrently and waits
// for all of them. The first failure cancels the rest.
func (r *Ranker) embedCandidates(ctx context.Context, candidates []core.Candidate) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(candidates))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i, candidate := range candidates {
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			vector, err := r.embedder.EmbedText(ctx, candidate.EmbeddingText())
			if err != nil {
				setErr(fmt.Errorf("%w: candidate %d (%s): %w", core.ErrEmbeddingFailure, i, candidate.Link, err))
				return
			}
			vectors[i] = vector
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("%w: submit candidate %d: %w", core.ErrEmbeddingFailure, i, submitErr))
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func (r *Ranker) fail(message string, err error) error {
	r.logger.Error("ranking failed",
		"stage", metrics.StageRank,
		"input", core.Excerpt(message, excerptLength),
		"err", err)
	metrics.ObserveStage(metrics.StageRank, metrics.OutcomeError)
	return err
}
