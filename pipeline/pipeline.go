package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/query"
	"github.com/poiesic/linkrank/rank"
)

// QueryComposer turns a user message into a search query.
type QueryComposer interface {
	ComposeQuery(ctx context.Context, userMessage string, opts ...query.RequestOption) (string, bool)
}

// SearchExecutor runs a query against the search provider.
type SearchExecutor interface {
	Execute(ctx context.Context, query string) ([]core.Candidate, error)
}

// Ranker orders candidates by relevance to a message.
type Ranker interface {
	Rank(ctx context.Context, message string, candidates []core.Candidate, topN int) (core.RankedResultSet, error)
}

// ResultDispatcher hands ranked links and locators to the placement sink.
type ResultDispatcher interface {
	DispatchCandidates(ctx context.Context, ranked core.RankedResultSet)
	DispatchLocator(ctx context.Context, locator string) error
}

// Outcome describes what a single invocation did.
type Outcome struct {
	// Query is the search query that was executed, or the locator when
	// Locator is true.
	Query string
	// Locator is true when the message was placed directly as a link.
	Locator bool
	// Candidates holds the normalized provider results in provider order.
	Candidates []core.Candidate
	// Ranked holds the links that were dispatched.
	Ranked core.RankedResultSet
}

// Pipeline orchestrates composition, search, ranking and dispatch.
type Pipeline struct {
	composer   QueryComposer
	executor   SearchExecutor
	ranker     Ranker
	dispatcher ResultDispatcher
	topN       int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTopN sets how many ranked links are dispatched per invocation.
// Default is rank.DefaultTopN; non-positive values keep the default.
func WithTopN(topN int) Option {
	return func(p *Pipeline) error {
		if topN > 0 {
			p.topN = topN
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new search pipeline.
func NewPipeline(
	composer QueryComposer,
	executor SearchExecutor,
	ranker Ranker,
	dispatcher ResultDispatcher,
	opts ...Option,
) (*Pipeline, error) {
	if composer == nil {
		return nil, ErrComposerRequired
	}
	if executor == nil {
		return nil, ErrExecutorRequired
	}
	if ranker == nil {
		return nil, ErrRankerRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	p := &Pipeline{
		composer:   composer,
		executor:   executor,
		ranker:     ranker,
		dispatcher: dispatcher,
		topN:       rank.DefaultTopN,
		logger:     slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run processes message end to end. Ranking is against message itself,
// not the composed query.
func (p *Pipeline) Run(ctx context.Context, message string, opts ...query.RequestOption) (Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return Outcome{}, nil
	}

	searchQuery, ok := p.composer.ComposeQuery(ctx, message, opts...)
	if !ok {
		p.logger.Debug("message placed as locator")
		return Outcome{Query: strings.TrimSpace(message), Locator: true}, nil
	}

	return p.searchAndDispatch(ctx, searchQuery, message)
}

// HandleNaturalLanguageSearch searches for searchQuery as given, ranks the
// results against it and dispatches them. No query composition happens.
func (p *Pipeline) HandleNaturalLanguageSearch(ctx context.Context, searchQuery string) (Outcome, error) {
	if strings.TrimSpace(searchQuery) == "" {
		return Outcome{}, nil
	}
	return p.searchAndDispatch(ctx, searchQuery, searchQuery)
}

// ProcessLinkInput places input directly when it is a locator and
// otherwise runs a natural-language search with it.
func (p *Pipeline) ProcessLinkInput(ctx context.Context, input string) (Outcome, error) {
	if query.IsLocator(input) {
		locator := strings.TrimSpace(input)
		if err := p.dispatcher.DispatchLocator(ctx, locator); err != nil {
			return Outcome{}, err
		}
		return Outcome{Query: locator, Locator: true}, nil
	}
	return p.HandleNaturalLanguageSearch(ctx, input)
}

func (p *Pipeline) searchAndDispatch(ctx context.Context, searchQuery, message string) (Outcome, error) {
	outcome := Outcome{Query: searchQuery}

	candidates, err := p.executor.Execute(ctx, searchQuery)
	if err != nil {
		return outcome, err
	}
	outcome.Candidates = candidates
	if len(candidates) == 0 {
		p.logger.Debug("no search results", "query", searchQuery)
		outcome.Ranked = core.RankedResultSet{}
		return outcome, nil
	}

	ranked, err := p.ranker.Rank(ctx, message, candidates, p.topN)
	if err != nil {
		return outcome, err
	}
	outcome.Ranked = ranked

	p.dispatcher.DispatchCandidates(ctx, ranked)
	p.logger.Debug("dispatched results", "query", searchQuery, "candidates", len(candidates), "dispatched", len(ranked))
	return outcome, nil
}
