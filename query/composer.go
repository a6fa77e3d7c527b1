// Package query turns a user message into a single web search query.
//
// A message that is itself a link is placed directly and no query is
// produced. Otherwise the chat model predicts a quoted query from recent
// conversation. Any model failure, and any empty result, degrades to the
// user's message verbatim, so a composed query is never empty.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/extract"
	"github.com/poiesic/linkrank/history"
	"github.com/poiesic/linkrank/metrics"
)

const (
	contextPrefix = "Recent conversation context: \n"
	instruction   = "Without unnecessary preface or summary... From the provided context history, predict a relevant search query within quotation marks."

	excerptLength = 80
)

// LocatorDispatcher places a link directly.
type LocatorDispatcher interface {
	DispatchLocator(ctx context.Context, locator string) error
}

// Composer builds search queries.
type Composer struct {
	chat       ai.ChatModel
	dispatcher LocatorDispatcher
	history    history.Source
	logger     *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithHistory sets the source of default conversation context.
func WithHistory(source history.Source) Option {
	return func(c *Composer) error {
		c.history = source
		return nil
	}
}

// NewComposer creates a new query composer.
func NewComposer(chat ai.ChatModel, dispatcher LocatorDispatcher, opts ...Option) (*Composer, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	c := &Composer{
		chat:       chat,
		dispatcher: dispatcher,
		logger:     slog.Default().With("component", "query"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

type request struct {
	context string
	target  ai.NodeRef
}

// RequestOption adjusts a single composition.
type RequestOption func(*request)

// WithContext supplies conversation context, bypassing the history snapshot.
func WithContext(text string) RequestOption {
	return func(r *request) {
		r.context = text
	}
}

// WithTarget routes the completion to a node-scoped endpoint.
func WithTarget(target ai.NodeRef) RequestOption {
	return func(r *request) {
		r.target = target
	}
}

// ComposeQuery returns the search query for userMessage. ok is false when
// there is nothing to search: userMessage is blank, or it is a locator that
// has already been dispatched. query is empty whenever ok is false.
func (c *Composer) ComposeQuery(ctx context.Context, userMessage string, opts ...RequestOption) (query string, ok bool) {
	if strings.TrimSpace(userMessage) == "" {
		c.logger.Warn("empty message, nothing to search",
			"stage", metrics.StageCompose,
			"err", ErrEmptyMessage)
		metrics.ObserveStage(metrics.StageCompose, metrics.OutcomeEmpty)
		return "", false
	}

	if IsLocator(userMessage) {
		locator := strings.TrimSpace(userMessage)
		if err := c.dispatcher.DispatchLocator(ctx, locator); err != nil {
			c.logger.Error("locator dispatch failed", "stage", metrics.StageCompose, "input", core.Excerpt(locator, excerptLength), "err", err)
		}
		metrics.ObserveStage(metrics.StageCompose, metrics.OutcomeLocator)
		return "", false
	}

	var req request
	for _, opt := range opts {
		opt(&req)
	}

	convo := history.Resolve(ctx, req.context, c.history, c.logger)
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: contextPrefix + convo},
		{Role: ai.RoleSystem, Content: instruction},
		{Role: ai.RoleUser, Content: userMessage},
	}

	response, err := c.chat.Complete(ctx, messages, ai.Deterministic(req.target))
	if err != nil {
		return c.degrade(userMessage, fmt.Errorf("%w: %w", core.ErrCompletionDegraded, err)), true
	}

	query, found := extract.FirstQuoted(response)
	if !found {
		query = response
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return c.degrade(userMessage, fmt.Errorf("%w: empty query", core.ErrCompletionDegraded)), true
	}

	c.logger.Debug("composed query", "query", query, "quoted", found)
	metrics.ObserveStage(metrics.StageCompose, metrics.OutcomeOK)
	return query, true
}

// degrade logs err and returns the user's message as the query.
func (c *Composer) degrade(userMessage string, err error) string {
	c.logger.Warn("query composition degraded, using message",
		"stage", metrics.StageCompose,
		"input", core.Excerpt(userMessage, excerptLength),
		"err", err)
	metrics.ObserveStage(metrics.StageCompose, metrics.OutcomeDegraded)
	return userMessage
}
