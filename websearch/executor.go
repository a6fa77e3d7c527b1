package websearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/metrics"
)

const excerptLength = 80

// Executor runs queries and normalizes provider payloads.
type Executor struct {
	provider Provider
	notifier Notifier
	logger   *slog.Logger

	mu    sync.RWMutex
	creds Credentials
}

// Option configures an Executor.
type Option func(*Executor) error

// WithCredentials sets the initial credentials.
func WithCredentials(creds Credentials) Option {
	return func(e *Executor) error {
		e.creds = creds
		return nil
	}
}

// WithNotifier sets where user-visible notices go.
// Default logs them.
func WithNotifier(notifier Notifier) Option {
	return func(e *Executor) error {
		if notifier != nil {
			e.notifier = notifier
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExecutor creates a new search executor.
func NewExecutor(provider Provider, opts ...Option) (*Executor, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	logger := slog.Default().With("component", "websearch")
	e := &Executor{
		provider: provider,
		notifier: &logNotifier{logger: logger},
		logger:   logger,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// SetCredentials replaces the credentials used by later searches.
func (e *Executor) SetCredentials(creds Credentials) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.creds = creds
}

// Credentials returns a snapshot of the current credentials.
func (e *Executor) Credentials() Credentials {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.creds
}

// Execute runs query and returns the provider's results as candidates, in
// provider order.
//
// Missing credentials return a *core.ConfigurationError. Provider failures
// are reported through the Notifier and yield an empty result with a nil
// error.
func (e *Executor) Execute(ctx context.Context, query string) ([]core.Candidate, error) {
	creds := e.Credentials()
	if err := creds.Validate(); err != nil {
		e.logger.Error("search not configured",
			"stage", metrics.StageSearch,
			"input", core.Excerpt(query, excerptLength),
			"credentials", creds,
			"err", err)
		e.notifier.Notify(ctx, err)
		metrics.ObserveStage(metrics.StageSearch, metrics.OutcomeError)
		return nil, err
	}

	name := providerName(e.provider)
	start := time.Now()
	raw, err := e.provider.Search(ctx, creds, query)
	metrics.SearchRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, core.ErrMalformedPayload) {
			e.logger.Warn("discarding malformed search payload",
				"stage", metrics.StageSearch,
				"input", core.Excerpt(query, excerptLength),
				"err", err)
			metrics.SearchRequestsTotal.WithLabelValues(name, "malformed").Inc()
			metrics.ObserveStage(metrics.StageSearch, metrics.OutcomeEmpty)
			return []core.Candidate{}, nil
		}

		unavailable := fmt.Errorf("%w: %w", core.ErrSearchUnavailable, err)
		e.logger.Error("search failed",
			"stage", metrics.StageSearch,
			"input", core.Excerpt(query, excerptLength),
			"err", unavailable)
		e.notifier.Notify(ctx, unavailable)
		metrics.SearchRequestsTotal.WithLabelValues(name, "error").Inc()
		metrics.ObserveStage(metrics.StageSearch, metrics.OutcomeError)
		return []core.Candidate{}, nil
	}

	metrics.SearchRequestsTotal.WithLabelValues(name, "ok").Inc()
	candidates := Normalize(raw)
	e.logger.Debug("search complete", "query", query, "results", len(candidates))
	if len(candidates) == 0 {
		metrics.ObserveStage(metrics.StageSearch, metrics.OutcomeEmpty)
	} else {
		metrics.ObserveStage(metrics.StageSearch, metrics.OutcomeOK)
	}
	return candidates, nil
}

// Normalize maps provider records 1:1 onto candidates. A nil response or
// missing items yields an empty slice.
func Normalize(raw *RawResponse) []core.Candidate {
	if raw == nil {
		return []core.Candidate{}
	}
	candidates := make([]core.Candidate, 0, len(raw.Items))
	for _, item := range raw.Items {
		candidates = append(candidates, core.Candidate{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Snippet,
		})
	}
	return candidates
}
