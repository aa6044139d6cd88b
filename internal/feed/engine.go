package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Engine states, monotonic: new → initialized → validating → validated.
const (
	StateNew         = "new"
	StateInitialized = "initialized"
	StateValidating  = "validating"
	StateValidated   = "validated"
)

// Config tunes the engine. Zero values take the deployment defaults.
type Config struct {
	// ExternalNullifier binds membership proofs to this application.
	ExternalNullifier string
	// KeyHash maps a hex public key to the proof signal that must accompany
	// it. Required; wiring normally passes verifier.KeyHash.
	KeyHash func(pubKeyHex string) string

	RateLimitPerHour int
	RateLimitWindow  time.Duration
	FeedWindow       int
	FeedMaxThreads   int
	NotificationCap  int
	MaxPostLength    int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.ExternalNullifier == "" {
		c.ExternalNullifier = "42"
	}
	if c.RateLimitPerHour == 0 {
		c.RateLimitPerHour = 1000
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = time.Hour
	}
	if c.FeedWindow == 0 {
		c.FeedWindow = 300
	}
	if c.FeedMaxThreads == 0 {
		c.FeedMaxThreads = 100
	}
	if c.NotificationCap == 0 {
		c.NotificationCap = 100
	}
	if c.MaxPostLength == 0 {
		c.MaxPostLength = 280
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// user is the materialized state of one identity.
type user struct {
	uid           int
	nullifierHash string
	profile       Profile
	pubKeys       []string
	// posts owned by this user, creation order.
	posts []*post
	// likedPosts holds post ids in like order.
	likedPosts []int
	// recentActions holds act timestamps, newest first, for rate limiting.
	recentActions []int64
	// notes is the notification ring, newest first, capacity-bounded.
	notes []Notification
}

// post is the materialized state of one post.
type post struct {
	id       int
	uid      int
	timeMs   int64
	content  string
	rootID   int
	parentID *int
	// replies is populated on thread roots only: the root itself followed
	// by every descendant, in insertion order.
	replies        []*post
	nDirectReplies int
	likedBy        map[int]struct{}
	// likers holds liker uids in like order.
	likers []int
}

// CommitFunc is fired exactly once per successfully appended transaction,
// before Append returns. The persistence collaborator durably stores (id, tx).
type CommitFunc func(id int, tx Transaction)

// Engine materializes the append-only transaction log into users, posts and
// notifications, and serves derived views.
//
// Concurrency: single writer. Append and Init take the write lock for their
// full verify+execute+commit span; reads take the read lock and observe the
// state as of the last committed transaction.
type Engine struct {
	cfg    Config
	sigs   SignatureVerifier
	proofs ProofVerifier
	oracle RootOracle
	logger *zap.Logger

	mu       sync.RWMutex
	state    string
	log      []Transaction
	users    []*user
	byHash   map[string]*user
	byPubKey map[string]*user
	posts    []*post
	onCommit CommitFunc

	initStatus     PhaseStatus
	validateStatus PhaseStatus
}

// New creates an Engine. It serves nothing until Init replays the stored log.
func New(sigs SignatureVerifier, proofs ProofVerifier, oracle RootOracle, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if cfg.KeyHash == nil {
		panic("feed: Config.KeyHash is required")
	}
	return &Engine{
		cfg:      cfg,
		sigs:     sigs,
		proofs:   proofs,
		oracle:   oracle,
		logger:   logger,
		state:    StateNew,
		byHash:   make(map[string]*user),
		byPubKey: make(map[string]*user),
	}
}

// SetCommitFunc registers the persistence callback. Must be called before
// the first Append.
func (e *Engine) SetCommitFunc(fn CommitFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCommit = fn
}

// Init replays the stored transaction log in order, trusting entries without
// re-deriving cryptographic proof (trust-on-replay, see Validate). It may be
// called at most once. Any malformed or inapplicable entry aborts startup:
// serving from a partially materialized log would be worse than not serving.
func (e *Engine) Init(ctx context.Context, txs []Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateNew {
		return fmt.Errorf("feed: Init called twice (state %s)", e.state)
	}

	start := e.cfg.Now()
	for i, tx := range txs {
		if _, err := e.verifyExec(ctx, i, tx, true); err != nil {
			e.initStatus = PhaseStatus{Done: true, Error: err.Error()}
			return fmt.Errorf("%w: replay tx %d: %v", ErrUnrecoverable, i, err)
		}
		e.log = append(e.log, tx)
	}

	e.state = StateInitialized
	e.initStatus = PhaseStatus{Done: true, ElapsedMs: e.cfg.Now().Sub(start).Milliseconds()}
	e.logger.Info("feed initialized",
		zap.Int("transactions", len(e.log)),
		zap.Int("users", len(e.users)),
		zap.Int("posts", len(e.posts)),
	)
	return nil
}

// Append verifies and executes tx, then commits it to the log. It is the sole
// mutating entry point after Init. On any failure the log position does not
// advance and no materialized state changes.
func (e *Engine) Append(ctx context.Context, tx Transaction) (PublicUser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateNew {
		return PublicUser{}, ErrNotReady
	}

	// The engine assigns the authoritative timestamp at acceptance.
	tx.TimeMs = e.cfg.Now().UnixMilli()

	id := len(e.log)
	u, err := e.verifyExec(ctx, id, tx, false)
	if err != nil {
		txResults.WithLabelValues(string(tx.Type), "rejected").Inc()
		return PublicUser{}, err
	}

	e.log = append(e.log, tx)
	if e.onCommit != nil {
		e.onCommit(id, tx)
	}
	txResults.WithLabelValues(string(tx.Type), "committed").Inc()
	return e.toPublicUser(u), nil
}

// verifyExec routes a transaction to its verify+execute handler. The caller
// holds the write lock. trusted skips cryptographic checks during replay.
// Handlers must validate every precondition before the first mutation; there
// is no rollback.
func (e *Engine) verifyExec(ctx context.Context, txID int, tx Transaction, trusted bool) (*user, error) {
	switch tx.Type {
	case TxAddKey:
		return e.verifyExecAddKey(ctx, tx, trusted)
	case TxAct:
		return e.verifyExecAct(txID, tx, trusted)
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrUnrecoverable, tx.Type)
	}
}

// Validate re-verifies every already-applied transaction without re-executing
// or rolling back. Failures are recorded for the status surface only: state
// was already served, and the log source is trusted. This is the second phase
// of the deliberate replay-then-validate startup.
func (e *Engine) Validate(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateInitialized {
		e.mu.Unlock()
		return fmt.Errorf("feed: Validate requires state %s, have %s", StateInitialized, e.state)
	}
	e.state = StateValidating
	snapshot := make([]Transaction, len(e.log))
	copy(snapshot, e.log)
	e.mu.Unlock()

	start := e.cfg.Now()
	failed := 0
	for i, tx := range snapshot {
		if err := e.verifyOnly(ctx, tx); err != nil {
			failed++
			e.logger.Error("log validation failed",
				zap.Int("txID", i),
				zap.String("type", string(tx.Type)),
				zap.Error(err),
			)
		}
	}

	e.mu.Lock()
	e.state = StateValidated
	e.validateStatus = PhaseStatus{
		Done:      true,
		ElapsedMs: e.cfg.Now().Sub(start).Milliseconds(),
		Checked:   len(snapshot),
		Failed:    failed,
	}
	if failed > 0 {
		e.validateStatus.Error = fmt.Sprintf("%d of %d transactions failed validation", failed, len(snapshot))
	}
	e.mu.Unlock()

	e.logger.Info("log validation complete",
		zap.Int("checked", len(snapshot)),
		zap.Int("failed", failed),
	)
	return nil
}

// ValidateAsync runs Validate in the background.
func (e *Engine) ValidateAsync(ctx context.Context) {
	go func() {
		if err := e.Validate(ctx); err != nil {
			e.logger.Error("background validation", zap.Error(err))
		}
	}()
}

// verifyOnly re-runs the cryptographic checks for one committed transaction.
// Pure verification: no state is read or written beyond the entry itself.
func (e *Engine) verifyOnly(ctx context.Context, tx Transaction) error {
	switch tx.Type {
	case TxAddKey:
		claim, err := e.proofs.VerifyProof(ctx, tx.PCD)
		if err != nil {
			return fmt.Errorf("proof: %w", err)
		}
		if claim.ExternalNullifier != e.cfg.ExternalNullifier {
			return fmt.Errorf("wrong external nullifier %q", claim.ExternalNullifier)
		}
		if claim.Signal != e.cfg.KeyHash(tx.PubKeyHex) {
			return fmt.Errorf("signal does not match public key")
		}
		ok, err := e.oracle.IsValidRoot(ctx, claim.MerkleRoot)
		if err != nil {
			return fmt.Errorf("root oracle: %w", err)
		}
		if !ok {
			return fmt.Errorf("unknown merkle root %q", claim.MerkleRoot)
		}
		return nil
	case TxAct:
		return e.sigs.VerifySignature(tx.PubKeyHex, tx.Signature, []byte(tx.ActionJSON))
	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}
}

// Tail returns all transactions with id >= sinceID, for log followers.
func (e *Engine) Tail(sinceID int) ([]Transaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == StateNew {
		return nil, ErrNotReady
	}
	if sinceID < 0 {
		sinceID = 0
	}
	if sinceID >= len(e.log) {
		return nil, nil
	}
	out := make([]Transaction, len(e.log)-sinceID)
	copy(out, e.log[sinceID:])
	return out, nil
}

// GetStatus returns the operator-facing snapshot.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		State:           e.state,
		NumTransactions: len(e.log),
		NumUsers:        len(e.users),
		NumPosts:        len(e.posts),
		Init:            e.initStatus,
		Validate:        e.validateStatus,
	}
}

// lookupUser returns the materialized user for uid, or nil.
// Caller holds at least the read lock.
func (e *Engine) lookupUser(uid int) *user {
	if uid < 0 || uid >= len(e.users) {
		return nil
	}
	return e.users[uid]
}

// lookupPost returns the materialized post for id, or nil.
// Caller holds at least the read lock.
func (e *Engine) lookupPost(id int) *post {
	if id < 0 || id >= len(e.posts) {
		return nil
	}
	return e.posts[id]
}

// toPublicUser strips signing keys and bookkeeping.
func (e *Engine) toPublicUser(u *user) PublicUser {
	return PublicUser{UID: u.uid, NullifierHash: u.nullifierHash, Profile: u.profile}
}

// toPost hydrates the API-facing view of p for the given viewer.
// viewerUID < 0 means logged out. Caller holds at least the read lock.
func (e *Engine) toPost(p *post, viewerUID int) Post {
	out := Post{
		ID:             p.id,
		User:           e.toPublicUser(e.users[p.uid]),
		TimeMs:         p.timeMs,
		Content:        p.content,
		RootID:         p.rootID,
		NDirectReplies: p.nDirectReplies,
		NLikes:         len(p.likers),
	}
	if p.parentID != nil {
		parentID := *p.parentID
		parentUID := e.posts[parentID].uid
		out.ParentID = &parentID
		out.ParentUID = &parentUID
	}
	if viewerUID >= 0 {
		_, out.Liked = p.likedBy[viewerUID]
	}
	return out
}
