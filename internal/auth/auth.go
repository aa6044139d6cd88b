// Package auth is the thin session boundary: a token↔uid map. Tokens grant
// read access only; every state-changing action is individually signed, so a
// stolen token cannot post or like as its owner.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Token is one issued session token.
type Token struct {
	Cookie    string `json:"cookie"`
	UID       int    `json:"uid"`
	CreatedMs int64  `json:"createdMs"`
}

// AddedFunc is fired once per newly created token, for durable storage.
type AddedFunc func(t Token)

// Store holds active tokens in memory; the full set is replayed from the
// persistence layer on startup.
type Store struct {
	mu      sync.RWMutex
	tokens  []Token
	byValue map[string]Token
	onAdded AddedFunc
	logger  *zap.Logger
}

// NewStore creates an empty token store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		byValue: make(map[string]Token),
		logger:  logger,
	}
}

// SetAddedFunc registers the persistence callback. Replayed tokens added via
// AddToken do not fire it.
func (s *Store) SetAddedFunc(fn AddedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdded = fn
}

// CreateToken issues a fresh token for uid and returns its cookie value.
func (s *Store) CreateToken(uid int) string {
	t := Token{
		Cookie:    uuid.NewString(),
		UID:       uid,
		CreatedMs: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	s.tokens = append(s.tokens, t)
	s.byValue[t.Cookie] = t
	fn := s.onAdded
	s.mu.Unlock()

	s.logger.Info("session token created", zap.Int("uid", uid))
	if fn != nil {
		fn(t)
	}
	return t.Cookie
}

// AddToken registers a token loaded from storage.
func (s *Store) AddToken(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, t)
	s.byValue[t.Cookie] = t
}

// Authenticate resolves a cookie value to a uid. Returns (-1, false) for a
// missing or unknown token.
func (s *Store) Authenticate(cookie string) (int, bool) {
	if cookie == "" {
		return -1, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byValue[cookie]
	if !ok {
		return -1, false
	}
	return t.UID, true
}

// Len returns the number of active tokens.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
