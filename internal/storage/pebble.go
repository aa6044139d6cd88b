package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// Key layout: fixed-width transaction ids so iteration order equals log
// order; tokens under their own prefix.
const (
	txKeyFmt    = "tx:%012d"
	txKeyPrefix = "tx:"
	tokKeyFmt   = "token:%s"
	tokPrefix   = "token:"
)

// PebbleStore is an embedded single-node store for deployments without a
// Postgres. Writes are synced; losing the tail of the log on crash would
// fork committed state.
type PebbleStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleStore opens (or creates) the database at path.
func NewPebbleStore(path string, logger *zap.Logger) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	logger.Info("pebble store opened", zap.String("path", path))
	return &PebbleStore{db: db, logger: logger}, nil
}

// LoadTransactions implements Store. The fixed-width keys make the iterator
// yield log order directly.
func (s *PebbleStore) LoadTransactions(_ context.Context) ([]feed.Transaction, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(txKeyPrefix),
		UpperBound: []byte(txKeyPrefix + ";"), // ';' sorts just after ':'
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	txs := []feed.Transaction{}
	for iter.First(); iter.Valid(); iter.Next() {
		var tx feed.Transaction
		if err := json.Unmarshal(iter.Value(), &tx); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		txs = append(txs, tx)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	s.logger.Info("loaded transaction log", zap.Int("transactions", len(txs)))
	return txs, nil
}

// SaveTransaction implements Store.
func (s *PebbleStore) SaveTransaction(_ context.Context, id int, tx feed.Transaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %d: %w", id, err)
	}
	key := fmt.Sprintf(txKeyFmt, id)
	if err := s.db.Set([]byte(key), raw, pebble.Sync); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// LoadAuthTokens implements Store.
func (s *PebbleStore) LoadAuthTokens(_ context.Context) ([]auth.Token, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(tokPrefix),
		UpperBound: []byte(tokPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	tokens := []auth.Token{}
	for iter.First(); iter.Valid(); iter.Next() {
		var t auth.Token
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		tokens = append(tokens, t)
	}
	return tokens, iter.Error()
}

// SaveAuthToken implements Store.
func (s *PebbleStore) SaveAuthToken(_ context.Context, t auth.Token) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode auth token: %w", err)
	}
	key := fmt.Sprintf(tokKeyFmt, t.Cookie)
	if err := s.db.Set([]byte(key), raw, pebble.Sync); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
