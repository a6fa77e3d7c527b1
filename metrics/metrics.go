// Package metrics holds the Prometheus collectors for the search pipeline.
//
// Collectors are package-level and unregistered; call Register once from
// main with the registry that should expose them.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linkrank"

// Stage labels
const (
	StageKeywords = "keywords"
	StageCompose  = "compose"
	StageSearch   = "search"
	StageRank     = "rank"
	StageDispatch = "dispatch"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
	OutcomeLocator  = "locator"
	OutcomeEmpty    = "empty"
)

var (
	StageOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_outcomes_total",
			Help:      "Pipeline stage completions by outcome",
		},
		[]string{"stage", "outcome"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search provider requests",
		},
		[]string{"provider", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_request_duration_seconds",
			Help:      "Search provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RankDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Time spent embedding and ordering candidates",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PlacementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_total",
			Help:      "Placements handed to the sink",
		},
		[]string{"status"},
	)
)

// Collectors returns every collector in the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StageOutcomesTotal,
		SearchRequestsTotal,
		SearchRequestDuration,
		EmbeddingCacheTotal,
		RankDuration,
		PlacementsTotal,
	}
}

// Register adds all collectors to reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveStage counts one completion of stage with the given outcome.
func ObserveStage(stage, outcome string) {
	StageOutcomesTotal.WithLabelValues(stage, outcome).Inc()
}
