// Package dispatch hands ranked results and direct links to the placement
// collaborator.
//
// Dispatch is fire-and-forget: each placement runs on a worker pool and the
// Dispatch methods return as soon as the work is queued. Sink errors are
// logged. Close waits for queued placements before releasing the pool.
package dispatch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/metrics"
)

// MaxDescriptionLength bounds placement descriptions, in runes.
const MaxDescriptionLength = 500

const ellipsis = "..."

// PlacementSink accepts node placement requests.
type PlacementSink interface {
	Place(ctx context.Context, placement core.Placement) error
}

// SinkFunc adapts a function to PlacementSink.
type SinkFunc func(ctx context.Context, placement core.Placement) error

// Place calls f.
func (f SinkFunc) Place(ctx context.Context, placement core.Placement) error {
	return f(ctx, placement)
}

// Dispatcher emits placements asynchronously.
type Dispatcher struct {
	sink   PlacementSink
	pool   *ants.Pool
	logger *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithPoolSize sets the number of concurrent placements.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(d *Dispatcher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if d.pool != nil {
			d.pool.Release()
		}
		d.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher that places into sink.
func NewDispatcher(sink PlacementSink, opts ...Option) (*Dispatcher, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		sink:   sink,
		pool:   pool,
		logger: slog.Default().With("component", "dispatch"),
	}
	d.idle = sync.NewCond(&d.mu)

	for _, opt := range opts {
		if optErr := opt(d); optErr != nil {
			d.pool.Release()
			return nil, optErr
		}
	}

	return d, nil
}

// DispatchCandidates queues one placement per candidate, in order, with the
// description truncated to MaxDescriptionLength.
func (d *Dispatcher) DispatchCandidates(ctx context.Context, ranked core.RankedResultSet) {
	for _, candidate := range ranked {
		d.submit(ctx, core.Placement{
			Link:        candidate.Link,
			Label:       candidate.Title,
			Description: DotTruncate(candidate.Description, MaxDescriptionLength),
		})
	}
}

// DispatchLocator queues a single placement that uses locator as both link
// and label.
func (d *Dispatcher) DispatchLocator(ctx context.Context, locator string) error {
	if locator == "" {
		return ErrEmptyLocator
	}
	d.submit(ctx, core.Placement{Link: locator, Label: locator})
	return nil
}

func (d *Dispatcher) submit(ctx context.Context, placement core.Placement) {
	// Placements outlive the caller's request.
	ctx = context.WithoutCancel(ctx)

	d.add()
	err := d.pool.Submit(func() {
		defer d.done()
		if err := d.sink.Place(ctx, placement); err != nil {
			d.logger.Error("placement failed",
				"stage", metrics.StageDispatch,
				"link", placement.Link,
				"err", err)
			metrics.PlacementsTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.PlacementsTotal.WithLabelValues("ok").Inc()
	})
	if err != nil {
		d.done()
		d.logger.Error("failed to queue placement", "link", placement.Link, "err", err)
		metrics.PlacementsTotal.WithLabelValues("dropped").Inc()
	}
}

func (d *Dispatcher) add() {
	d.mu.Lock()
	d.pending++
	d.mu.Unlock()
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	d.pending--
	if d.pending == 0 {
		d.idle.Broadcast()
	}
	d.mu.Unlock()
}

// Wait blocks until no placement is pending. It is safe to call while other
// goroutines are still dispatching.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	for d.pending > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Close waits for queued placements and releases the worker pool.
// The dispatcher should not be used after calling Close.
func (d *Dispatcher) Close() error {
	d.Wait()
	d.pool.Release()
	return nil
}

// DotTruncate shortens s to at most max runes, ending in "..." when
// anything was cut.
func DotTruncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}
