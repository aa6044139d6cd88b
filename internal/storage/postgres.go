package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dcposch/zucast/internal/auth"
	"github.com/dcposch/zucast/internal/feed"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists the log and tokens to PostgreSQL, one JSONB row per
// transaction keyed by log position.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates the store and its tables if absent.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, logger: logger}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stored_action (
			id INTEGER PRIMARY KEY,
			action JSONB NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("create stored_action: %w", err)
	}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auth_token (
			id SERIAL PRIMARY KEY,
			token JSONB NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("create auth_token: %w", err)
	}
	return s, nil
}

// LoadTransactions implements Store. Rows are keyed by log position; only the
// contiguous prefix is returned, so a torn write at the tail cannot leave a
// hole in the replayed log.
func (s *PostgresStore) LoadTransactions(ctx context.Context) ([]feed.Transaction, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, action FROM stored_action ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("query stored_action: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]feed.Transaction)
	maxID := -1
	for rows.Next() {
		var id int
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan stored_action: %w", err)
		}
		var tx feed.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("decode stored_action %d: %w", id, err)
		}
		byID[id] = tx
		if id > maxID {
			maxID = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stored_action: %w", err)
	}

	txs := []feed.Transaction{}
	for id := 0; id <= maxID; id++ {
		tx, ok := byID[id]
		if !ok {
			break
		}
		txs = append(txs, tx)
	}
	s.logger.Info("loaded transaction log",
		zap.Int("contiguous", len(txs)),
		zap.Int("total", len(byID)),
	)
	return txs, nil
}

// SaveTransaction implements Store.
func (s *PostgresStore) SaveTransaction(ctx context.Context, id int, tx feed.Transaction) error {
	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %d: %w", id, err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO stored_action (id, action) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET action = $2`,
		id, raw,
	); err != nil {
		return fmt.Errorf("insert transaction %d: %w", id, err)
	}
	return nil
}

// LoadAuthTokens implements Store.
func (s *PostgresStore) LoadAuthTokens(ctx context.Context) ([]auth.Token, error) {
	rows, err := s.pool.Query(ctx, "SELECT token FROM auth_token ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("query auth_token: %w", err)
	}
	defer rows.Close()

	tokens := []auth.Token{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan auth_token: %w", err)
		}
		var t auth.Token
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode auth_token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// SaveAuthToken implements Store.
func (s *PostgresStore) SaveAuthToken(ctx context.Context, t auth.Token) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode auth token: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		"INSERT INTO auth_token (token) VALUES ($1)", raw,
	); err != nil {
		return fmt.Errorf("insert auth token: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
