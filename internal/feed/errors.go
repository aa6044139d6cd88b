package feed

import "errors"

// Error taxonomy for Append and the read surface. Handlers match these with
// errors.Is to pick a response code; messages carry the specifics.
var (
	// ErrNotReady means Init has not completed yet. Callers should retry.
	ErrNotReady = errors.New("feed: not initialized")

	// ErrNotFound means a referenced uid, post or parent does not exist.
	ErrNotFound = errors.New("feed: not found")

	// ErrUnauthorized covers unknown keys, bad signatures, failed proofs
	// and stale merkle roots.
	ErrUnauthorized = errors.New("feed: unauthorized")

	// ErrDuplicate covers key reuse and double-likes.
	ErrDuplicate = errors.New("feed: duplicate")

	// ErrRateLimited means the identity exceeded its hourly action ceiling.
	ErrRateLimited = errors.New("feed: rate limited")

	// ErrInvalidContent means a post or profile failed the content policy.
	ErrInvalidContent = errors.New("feed: invalid content")

	// ErrUnrecoverable means a malformed log entry was hit during replay.
	// The log source is trusted, so this is a startup fault.
	ErrUnrecoverable = errors.New("feed: unrecoverable log entry")
)
