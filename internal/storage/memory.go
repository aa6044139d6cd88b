package storage

import (
	"context"
	"sync"

	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
)

// MemoryStore keeps everything in process memory. For tests and for running
// without durability.
type MemoryStore struct {
	mu     sync.Mutex
	txs    []feed.Transaction
	tokens []auth.Token
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadTransactions implements Store.
func (s *MemoryStore) LoadTransactions(context.Context) ([]feed.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]feed.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

// SaveTransaction implements Store. Ids arrive in log order, one per commit.
func (s *MemoryStore) SaveTransaction(_ context.Context, id int, tx feed.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == len(s.txs) {
		s.txs = append(s.txs, tx)
	} else if id < len(s.txs) {
		s.txs[id] = tx
	} else {
		grown := make([]feed.Transaction, id+1)
		copy(grown, s.txs)
		grown[id] = tx
		s.txs = grown
	}
	return nil
}

// LoadAuthTokens implements Store.
func (s *MemoryStore) LoadAuthTokens(context.Context) ([]auth.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.Token, len(s.tokens))
	copy(out, s.tokens)
	return out, nil
}

// SaveAuthToken implements Store.
func (s *MemoryStore) SaveAuthToken(_ context.Context, t auth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, t)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
