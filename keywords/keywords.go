// Package keywords derives short keyword sets from a user message.
//
// With conversation context available the chat model picks three quoted
// single-word keywords. Without context, or when the model call fails, a
// local heuristic takes the longest words of the message instead.
package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/extract"
	"github.com/poiesic/linkrank/history"
	"github.com/poiesic/linkrank/metrics"
)

const (
	contextPrefix = "Recent conversation:"
	instruction   = "Provide three single-word keywords relevant to the latest user message. Enclose each keyword in quotations and separate them with commas."

	excerptLength = 80
)

// Extractor derives keywords from messages.
type Extractor struct {
	chat    ai.ChatModel
	history history.Source
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithHistory sets the source of default conversation context.
func WithHistory(source history.Source) Option {
	return func(e *Extractor) error {
		e.history = source
		return nil
	}
}

// NewExtractor creates a new keyword extractor.
func NewExtractor(chat ai.ChatModel, opts ...Option) (*Extractor, error) {
	if chat == nil {
		return nil, ErrChatModelRequired
	}

	e := &Extractor{
		chat:   chat,
		logger: slog.Default().With("component", "keywords"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

type request struct {
	context string
	target  ai.NodeRef
}

// RequestOption adjusts a single extraction.
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

// ExtractKeywords returns at most count keywords for message. A
// non-positive count yields no keywords.
func (e *Extractor) ExtractKeywords(ctx context.Context, message string, count int, opts ...RequestOption) []string {
	if count <= 0 {
		return nil
	}

	var req request
	for _, opt := range opts {
		opt(&req)
	}

	convo := history.Resolve(ctx, req.context, e.history, e.logger)
	if strings.TrimSpace(convo) == "" {
		metrics.ObserveStage(metrics.StageKeywords, metrics.OutcomeOK)
		return Heuristic(message, count)
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: contextPrefix + convo},
		{Role: ai.RoleSystem, Content: instruction},
		{Role: ai.RoleUser, Content: message},
	}

	response, err := e.chat.Complete(ctx, messages, ai.Deterministic(req.target))
	if err != nil {
		e.logger.Warn("keyword completion failed, using heuristic",
			"stage", metrics.StageKeywords,
			"input", core.Excerpt(message, excerptLength),
			"target", req.target,
			"err", fmt.Errorf("%w: %w", core.ErrCompletionDegraded, err))
		metrics.ObserveStage(metrics.StageKeywords, metrics.OutcomeDegraded)
		return Heuristic(message, count)
	}

	keywords := extract.Quoted(response)
	e.logger.Debug("extracted keywords", "response", core.Excerpt(response, excerptLength), "keywords", keywords)
	if len(keywords) > count {
		keywords = keywords[:count]
	}

	if len(keywords) == 0 {
		metrics.ObserveStage(metrics.StageKeywords, metrics.OutcomeEmpty)
	} else {
		metrics.ObserveStage(metrics.StageKeywords, metrics.OutcomeOK)
	}
	return keywords
}

// Heuristic returns the count longest whitespace-separated words of
// message. Words of equal length keep their original order.
func Heuristic(message string, count int) []string {
	if count <= 0 {
		return nil
	}

	words := strings.Fields(message)
	slices.SortStableFunc(words, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	if len(words) > count {
		words = words[:count]
	}
	return words
}
