// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linkrank

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/ai/cache"
	"github.com/poiesic/linkrank/ai/openai"
	"github.com/poiesic/linkrank/config"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/dispatch"
	"github.com/poiesic/linkrank/history"
	"github.com/poiesic/linkrank/keywords"
	"github.com/poiesic/linkrank/pipeline"
	"github.com/poiesic/linkrank/query"
	"github.com/poiesic/linkrank/rank"
	"github.com/poiesic/linkrank/storage"
	"github.com/poiesic/linkrank/storage/badger"
	"github.com/poiesic/linkrank/websearch"
)

// ErrSinkRequired is returned when no placement sink is provided.
var ErrSinkRequired = errors.New("placement sink required")

// Engine wires storage, AI services and the search stages together.
type Engine struct {
	backend    *badger.Backend
	turnRepo   storage.TurnRepository
	cacheRepo  storage.EmbeddingCacheRepository
	provider   ai.AIProvider
	history    *history.History
	extractor  *keywords.Extractor
	composer   *query.Composer
	executor   *websearch.Executor
	ranker     *rank.Ranker
	dispatcher *dispatch.Dispatcher
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider       ai.AIProvider
	searchProvider websearch.Provider
	notifier       websearch.Notifier
	logger         *slog.Logger
}

// WithAIProvider overrides the OpenAI-compatible provider built from the
// configuration. The engine takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithSearchProvider overrides the Google search provider.
func WithSearchProvider(provider websearch.Provider) EngineOption {
	return func(o *engineOptions) {
		o.searchProvider = provider
	}
}

// WithNotifier sets where user-facing search notices go.
func WithNotifier(notifier websearch.Notifier) EngineOption {
	return func(o *engineOptions) {
		o.notifier = notifier
	}
}

// WithLogger sets a custom logger for the engine and its components.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens storage and builds every stage from cfg. Placements are
// delivered to sink.
func NewEngine(cfg config.Config, sink dispatch.PlacementSink, opts ...EngineOption) (*Engine, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	e := &Engine{logger: logger}

	var err error
	if cfg.Storage.InMemory {
		e.turnRepo, e.cacheRepo, e.backend, err = badger.NewMemoryRepositories()
	} else {
		e.turnRepo, e.cacheRepo, e.backend, err = badger.OpenRepositories(cfg.Storage.Path)
	}
	if err != nil {
		return nil, err
	}

	if err := e.build(cfg, sink, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(cfg config.Config, sink dispatch.PlacementSink, options *engineOptions) error {
	logger := e.logger

	aiConfig := cfg.AIConfig()
	e.provider = options.provider
	if e.provider == nil {
		provider, err := openai.NewProvider(aiConfig)
		if err != nil {
			return err
		}
		e.provider = provider
	}

	hist, err := history.New(e.turnRepo, history.WithLogger(logger.With("component", "history")))
	if err != nil {
		return err
	}
	e.history = hist

	embedder := cache.New(e.provider.Embedder(), e.cacheRepo, aiConfig.EmbeddingModel,
		cache.WithLogger(logger.With("component", "embedding-cache")))

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger.With("component", "dispatch"))}
	if cfg.Dispatch.PoolSize > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithPoolSize(cfg.Dispatch.PoolSize))
	}
	if e.dispatcher, err = dispatch.NewDispatcher(sink, dispatchOpts...); err != nil {
		return err
	}

	if e.extractor, err = keywords.NewExtractor(e.provider.ChatModel(),
		keywords.WithHistory(hist),
		keywords.WithLogger(logger.With("component", "keywords"))); err != nil {
		return err
	}

	if e.composer, err = query.NewComposer(e.provider.ChatModel(), e.dispatcher,
		query.WithHistory(hist),
		query.WithLogger(logger.With("component", "query"))); err != nil {
		return err
	}

	searchProvider := options.searchProvider
	if searchProvider == nil {
		var googleOpts []websearch.GoogleOption
		if cfg.Search.BaseURL != "" {
			googleOpts = append(googleOpts, websearch.WithBaseURL(cfg.Search.BaseURL))
		}
		searchProvider = websearch.NewGoogleProvider(googleOpts...)
	}
	executorOpts := []websearch.Option{
		websearch.WithCredentials(cfg.Credentials()),
		websearch.WithLogger(logger.With("component", "websearch")),
	}
	if options.notifier != nil {
		executorOpts = append(executorOpts, websearch.WithNotifier(options.notifier))
	}
	if e.executor, err = websearch.NewExecutor(searchProvider, executorOpts...); err != nil {
		return err
	}

	rankOpts := []rank.Option{rank.WithLogger(logger.With("component", "rank"))}
	if cfg.Rank.PoolSize > 0 {
		rankOpts = append(rankOpts, rank.WithPoolSize(cfg.Rank.PoolSize))
	}
	if e.ranker, err = rank.NewRanker(embedder, rankOpts...); err != nil {
		return err
	}

	e.pipeline, err = pipeline.NewPipeline(e.composer, e.executor, e.ranker, e.dispatcher,
		pipeline.WithTopN(cfg.Rank.TopN),
		pipeline.WithLogger(logger.With("component", "pipeline")))
	return err
}

// Close waits for pending placements and releases every resource.
func (e *Engine) Close() error {
	if e.dispatcher != nil {
		if err := e.dispatcher.Close(); err != nil {
			e.logger.Error("error closing dispatcher", "err", err)
		}
	}
	if e.ranker != nil {
		e.ranker.Release()
	}

	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := e.cacheRepo.Close(); err != nil {
		e.logger.Error("error closing embedding cache repository", "err", err)
		return err
	}
	if err := e.turnRepo.Close(); err != nil {
		e.logger.Error("error closing turn repository", "err", err)
		return err
	}

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Search runs message through composition, search, ranking and dispatch.
func (e *Engine) Search(ctx context.Context, message string, opts ...query.RequestOption) (pipeline.Outcome, error) {
	return e.pipeline.Run(ctx, message, opts...)
}

// ProcessLinkInput places a locator directly or searches for the input
// as typed.
func (e *Engine) ProcessLinkInput(ctx context.Context, input string) (pipeline.Outcome, error) {
	return e.pipeline.ProcessLinkInput(ctx, input)
}

// ExtractKeywords returns up to count keywords for message.
func (e *Engine) ExtractKeywords(ctx context.Context, message string, count int, opts ...keywords.RequestOption) []string {
	return e.extractor.ExtractKeywords(ctx, message, count, opts...)
}

// Remember appends an exchange to the conversation history.
func (e *Engine) Remember(ctx context.Context, prompt, response string) (*core.Turn, error) {
	return e.history.Record(ctx, prompt, response)
}

// Snapshot returns the conversation context for the newest maxTurns turns.
func (e *Engine) Snapshot(ctx context.Context, maxTurns, maxCharsPerTurn int) (string, error) {
	return e.history.Snapshot(ctx, maxTurns, maxCharsPerTurn)
}

// Wait blocks until every queued placement has been delivered.
func (e *Engine) Wait() {
	e.dispatcher.Wait()
}

// SetCredentials replaces the search credentials for later searches.
func (e *Engine) SetCredentials(creds websearch.Credentials) {
	e.executor.SetCredentials(creds)
}

// Pipeline returns the search pipeline.
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

// TurnRepository returns the conversation history store.
func (e *Engine) TurnRepository() storage.TurnRepository {
	return e.turnRepo
}

// EmbeddingCacheRepository returns the embedding cache store.
func (e *Engine) EmbeddingCacheRepository() storage.EmbeddingCacheRepository {
	return e.cacheRepo
}
