package storage

import (
	"context"
	"time"

	"github.com/poiesic/linkrank/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// TurnRepository provides operations for the conversation history.
type TurnRepository interface {
	Repository
	// AddTurns appends one or more turns to the history.
	// IDs are always generated from a sequence.
	// Sets InsertedAt to the current time.
	// Returns the turns with generated IDs and timestamps populated.
	AddTurns(ctx context.Context, turns ...*core.Turn) ([]*core.Turn, error)

	// DeleteTurns removes turns by their IDs.
	// Returns ErrNotFound if any turn doesn't exist.
	DeleteTurns(ctx context.Context, ids ...core.ID) error

	// GetTurn retrieves a single turn by ID.
	// Returns ErrNotFound if the turn doesn't exist.
	GetTurn(ctx context.Context, id core.ID) (*core.Turn, error)

	// GetTurnsByDateRange retrieves turns where start <= Timestamp < end,
	// ordered by timestamp ascending.
	GetTurnsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Turn, error)

	// GetRecentTurns retrieves up to limit turns, most recent first.
	GetRecentTurns(ctx context.Context, limit int) ([]*core.Turn, error)
}

// EmbeddingCacheRepository persists embedding vectors keyed by content ID.
type EmbeddingCacheRepository interface {
	Repository
	// GetEmbedding retrieves a cached embedding.
	// Returns ErrNotFound if nothing is cached under id.
	GetEmbedding(ctx context.Context, id core.ID) (*core.CachedEmbedding, error)

	// PutEmbeddings stores or replaces cached embeddings.
	PutEmbeddings(ctx context.Context, embeddings ...*core.CachedEmbedding) error

	// CountEmbeddings returns the number of cached embeddings.
	CountEmbeddings(ctx context.Context) (int, error)
}
