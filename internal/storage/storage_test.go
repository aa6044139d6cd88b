package storage_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"github.com/dcposch/zucast/internal/storage"
	"go.uber.org/zap"
)

var ctx = context.Background()

func sampleTxs() []feed.Transaction {
	return []feed.Transaction{
		{Type: feed.TxAddKey, TimeMs: 1000, PubKeyHex: "04aa", PCD: `{"type":"x","pcd":"{}"}`},
		{Type: feed.TxAct, TimeMs: 2000, UID: 0, PubKeyHex: "04aa",
			Signature: "beef", ActionJSON: `{"type":"post","content":"hi"}`},
	}
}

// roundTrip exercises the Store contract shared by every backend.
func roundTrip(t *testing.T, s storage.Store) {
	t.Helper()

	// Empty store loads empty.
	txs, err := s.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions(empty): %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("empty store returned %d transactions", len(txs))
	}

	want := sampleTxs()
	for i, tx := range want {
		if err := s.SaveTransaction(ctx, i, tx); err != nil {
			t.Fatalf("SaveTransaction(%d): %v", i, err)
		}
	}
	got, err := s.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transactions round trip:\ngot  %+v\nwant %+v", got, want)
	}

	// Saving an id twice (commit retry) keeps the log intact.
	if err := s.SaveTransaction(ctx, 1, want[1]); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, _ = s.LoadTransactions(ctx)
	if len(got) != 2 {
		t.Errorf("re-save grew the log to %d entries", len(got))
	}

	tok := auth.Token{Cookie: "c-1", UID: 4, CreatedMs: 99}
	if err := s.SaveAuthToken(ctx, tok); err != nil {
		t.Fatalf("SaveAuthToken: %v", err)
	}
	tokens, err := s.LoadAuthTokens(ctx)
	if err != nil {
		t.Fatalf("LoadAuthTokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != tok {
		t.Errorf("tokens = %+v, want [%+v]", tokens, tok)
	}
}

func TestMemoryStore(t *testing.T) {
	s := storage.NewMemoryStore()
	defer s.Close() //nolint:errcheck
	roundTrip(t, s)
}

func TestPebbleStore(t *testing.T) {
	s, err := storage.NewPebbleStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewPebbleStore: %v", err)
	}
	defer s.Close() //nolint:errcheck
	roundTrip(t, s)
}

func TestPebbleStoreOrderAndReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.NewPebbleStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPebbleStore: %v", err)
	}

	// Write out of order; fixed-width keys must still load in log order.
	txs := make([]feed.Transaction, 15)
	for i := range txs {
		txs[i] = feed.Transaction{Type: feed.TxAct, TimeMs: int64(i), ActionJSON: `{"type":"post"}`}
	}
	for _, i := range []int{11, 3, 0, 14, 7, 1, 2, 4, 5, 6, 8, 9, 10, 12, 13} {
		if err := s.SaveTransaction(ctx, i, txs[i]); err != nil {
			t.Fatalf("SaveTransaction(%d): %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: the log survives the process.
	s, err = storage.NewPebbleStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close() //nolint:errcheck

	got, err := s.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if !reflect.DeepEqual(got, txs) {
		t.Errorf("log after reopen:\ngot  %+v\nwant %+v", got, txs)
	}
}
