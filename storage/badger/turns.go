package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/linkrank/core"
	"github.com/poiesic/linkrank/storage"
)

// TurnRepository implements storage.TurnRepository for BadgerDB.
type TurnRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	logger  *slog.Logger
}

var _ storage.TurnRepository = (*TurnRepository)(nil)

// NewTurnRepository creates a new TurnRepository.
func NewTurnRepository(backend *Backend) (*TurnRepository, error) {
	idSeq, err := backend.GetSequence(turnIDSeq)
	if err != nil {
		return nil, err
	}

	return &TurnRepository{
		backend: backend,
		idSeq:   idSeq,
		logger:  backend.logger.With("repository", "turns"),
	}, nil
}

// Close releases the ID sequence.
func (r *TurnRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *TurnRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddTurns appends one or more turns to the history.
func (r *TurnRepository) AddTurns(ctx context.Context, turns ...*core.Turn) ([]*core.Turn, error) {
	for _, turn := range turns {
		if err := core.ValidateTurn(turn); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, turn := range turns {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			turn.Id = core.ID(nextID)
			turn.InsertedAt = time.Now().UTC()
			if turn.Timestamp.IsZero() {
				turn.Timestamp = turn.InsertedAt
			}

			if err := tx.Set(makeTurnKey(turn.Id), storage.MarshalTurn(turn)); err != nil {
				return err
			}

			dateKey := makeTurnDateKey(turn.Timestamp, turn.Id)
			if err := tx.Set(dateKey, storage.MarshalID(turn.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		r.logger.Error("failed to add turns", "count", len(turns), "err", err)
		return nil, err
	}

	return turns, nil
}

// DeleteTurns removes turns by their IDs.
func (r *TurnRepository) DeleteTurns(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeTurnKey(id)

			turn, err := r.readTurn(tx, key)
			if err != nil {
				return err
			}
			if turn == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeTurnDateKey(turn.Timestamp, turn.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetTurn retrieves a single turn by ID.
func (r *TurnRepository) GetTurn(ctx context.Context, id core.ID) (*core.Turn, error) {
	var result *core.Turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readTurn(tx, makeTurnKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetTurnsByDateRange retrieves turns where start <= Timestamp < end.
func (r *TurnRepository) GetTurnsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Turn, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", storage.ErrInvalidQuery,
			end.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano))
	}
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialTurnDateKey(start)
		endKey := makePartialTurnDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if slices.Compare(iter.Item().Key(), endKey) >= 0 {
				break
			}

			turn, err := r.readIndexedTurn(tx, iter.Item())
			if err != nil {
				return err
			}
			if turn != nil {
				results = append(results, turn)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentTurns retrieves up to limit turns, most recent first.
func (r *TurnRepository) GetRecentTurns(ctx context.Context, limit int) ([]*core.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.Turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent turns first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialTurnDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(turnDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			turn, err := r.readIndexedTurn(tx, iter.Item())
			if err != nil {
				return err
			}
			if turn != nil {
				results = append(results, turn)
			}
		}
		return nil
	}, false)

	return results, err
}

// Helper methods

// readIndexedTurn follows a date index entry to its turn.
func (r *TurnRepository) readIndexedTurn(tx *badger.Txn, item *badger.Item) (*core.Turn, error) {
	var turnID core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		turnID, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}
	return r.readTurn(tx, makeTurnKey(turnID))
}

// readTurn reads a turn from the transaction. A missing key yields nil, nil.
func (r *TurnRepository) readTurn(tx *badger.Txn, key []byte) (*core.Turn, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var turn *core.Turn
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		turn, unmarshalErr = storage.UnmarshalTurn(val)
		return unmarshalErr
	})
	return turn, err
}
