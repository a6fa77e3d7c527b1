// Package history reads the recent conversation as a prompt-ready context
// snapshot.
//
// Keyword extraction and query composition both ask for "the last few
// exchanges" when the caller supplies no explicit context. The snapshot is
// plain text so it can be placed directly into a system message.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/storage"
)

const (
	// DefaultTurns is the number of exchanges included when callers don't say.
	DefaultTurns = 2

	// DefaultCharsPerTurn caps each prompt and response, in runes.
	DefaultCharsPerTurn = 150
)

// ErrRepositoryRequired is returned when a History has no turn store.
var ErrRepositoryRequired = errors.New("turn repository is required")

// Source produces read-only context snapshots.
type Source interface {
	// Snapshot returns the most recent maxTurns exchanges, oldest first,
	// with each prompt and response capped at maxCharsPerTurn runes.
	// An empty history yields an empty string.
	Snapshot(ctx context.Context, maxTurns, maxCharsPerTurn int) (string, error)
}

// History is a Source backed by a turn repository.
type History struct {
	repo   storage.TurnRepository
	logger *slog.Logger
}

var _ Source = (*History)(nil)

// Option configures a History.
type Option func(*History)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		h.logger = logger
	}
}

// New creates a History over repo.
func New(repo storage.TurnRepository, opts ...Option) (*History, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	h := &History{
		repo:   repo,
		logger: slog.Default().With("component", "history"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Record appends one exchange to the conversation.
func (h *History) Record(ctx context.Context, prompt, response string) (*core.Turn, error) {
	turn := &core.Turn{
		Prompt:    prompt,
		Response:  response,
		Timestamp: time.Now().UTC(),
	}
	added, err := h.repo.AddTurns(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("record turn: %w", err)
	}
	h.logger.Debug("recorded turn", "id", added[0].Id)
	return added[0], nil
}

// Snapshot implements Source.
func (h *History) Snapshot(ctx context.Context, maxTurns, maxCharsPerTurn int) (string, error) {
	if maxTurns <= 0 {
		return "", nil
	}

	turns, err := h.repo.GetRecentTurns(ctx, maxTurns)
	if err != nil {
		return "", fmt.Errorf("fetch recent turns: %w", err)
	}

	// GetRecentTurns returns newest first, we want oldest first for context
	var sb strings.Builder
	for i := len(turns) - 1; i >= 0; i-- {
		sb.WriteString("\n\nPrompt: ")
		sb.WriteString(truncate(turns[i].Prompt, maxCharsPerTurn))
		sb.WriteString("\nResponse: ")
		sb.WriteString(truncate(turns[i].Response, maxCharsPerTurn))
	}

	h.logger.Debug("built context snapshot", "turns", len(turns), "length", sb.Len())
	return sb.String(), nil
}

// truncate keeps at most max runes of s. A non-positive max disables the cap.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Resolve returns explicit when it is non-empty, otherwise a default-sized
// snapshot from source. A nil source or a snapshot failure yields "" and the
// failure is logged.
func Resolve(ctx context.Context, explicit string, source Source, logger *slog.Logger) string {
	if explicit != "" || source == nil {
		return explicit
	}
	snapshot, err := source.Snapshot(ctx, DefaultTurns, DefaultCharsPerTurn)
	if err != nil {
		logger.Warn("context snapshot unavailable", "err", err)
		return ""
	}
	return snapshot
}
