// Package storage durably records the append-only transaction log and the
// session tokens. The engine can fully rebuild its materialized state from
// LoadTransactions alone.
package storage

import (
	"context"

	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
)

// Store is the persistence collaborator consumed by the server.
//
// LoadTransactions is called once, before engine Init. SaveTransaction is
// called exactly once per committed append and must be durable before the
// process would next restart; id equals the transaction's log position.
type Store interface {
	LoadTransactions(ctx context.Context) ([]feed.Transaction, error)
	SaveTransaction(ctx context.Context, id int, tx feed.Transaction) error

	LoadAuthTokens(ctx context.Context) ([]auth.Token, error)
	SaveAuthToken(ctx context.Context, t auth.Token) error

	Close() error
}
