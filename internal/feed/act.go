package feed

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// verifyExecAct verifies a signed action, applies the rate limit, and
// dispatches the decoded action. Caller holds the write lock.
//
// Ordering matters for atomicity: every check — signature, rate ceiling,
// payload decode, action preconditions — happens before the first mutation,
// and the action is recorded in the rate-limit window only after it executed.
// A rejected action leaves the window unchanged.
func (e *Engine) verifyExecAct(txID int, tx Transaction, trusted bool) (*user, error) {
	u := e.lookupUser(tx.UID)
	if u == nil {
		return nil, fmt.Errorf("%w: uid %d", ErrNotFound, tx.UID)
	}

	if !hasKey(u, tx.PubKeyHex) {
		return nil, fmt.Errorf("%w: signing key not bound to uid %d", ErrUnauthorized, tx.UID)
	}
	if !trusted {
		if err := e.sigs.VerifySignature(tx.PubKeyHex, tx.Signature, []byte(tx.ActionJSON)); err != nil {
			return nil, fmt.Errorf("%w: signature: %v", ErrUnauthorized, err)
		}
	}

	// Sliding-window rate limit, measured against the transaction's own
	// timestamp so replay reproduces the same accept/reject decisions.
	e.trimWindow(u, tx.TimeMs)
	if len(u.recentActions) >= e.cfg.RateLimitPerHour {
		return nil, fmt.Errorf("%w: uid %d exceeded %d actions per %s",
			ErrRateLimited, u.uid, e.cfg.RateLimitPerHour, e.cfg.RateLimitWindow)
	}

	var action Action
	if err := json.Unmarshal([]byte(tx.ActionJSON), &action); err != nil {
		return nil, fmt.Errorf("%w: malformed action payload: %v", ErrInvalidContent, err)
	}

	if err := e.executeAction(txID, u, action, tx.TimeMs); err != nil {
		return nil, err
	}

	// Newest first; trimWindow pops expired entries off the tail.
	u.recentActions = append([]int64{tx.TimeMs}, u.recentActions...)
	return u, nil
}

// trimWindow drops entries older than the rate-limit window from the tail of
// the user's newest-first action list.
func (e *Engine) trimWindow(u *user, nowMs int64) {
	cutoff := nowMs - e.cfg.RateLimitWindow.Milliseconds()
	for n := len(u.recentActions); n > 0 && u.recentActions[n-1] < cutoff; n = len(u.recentActions) {
		u.recentActions = u.recentActions[:n-1]
	}
}

// executeAction routes a decoded action. Unknown action types are logged and
// ignored — not an error — so logs written by newer engines still replay.
func (e *Engine) executeAction(txID int, u *user, action Action, timeMs int64) error {
	switch action.Type {
	case ActionPost:
		return e.executePost(txID, u, action, timeMs)
	case ActionLike:
		return e.executeLike(txID, u, action.PostID, timeMs)
	case ActionUnlike:
		return e.executeUnlike(u, action.PostID)
	case ActionSaveProfile:
		return e.executeSaveProfile(u, action.Profile)
	default:
		e.logger.Warn("ignoring unknown action type",
			zap.String("type", action.Type),
			zap.Int("uid", u.uid),
		)
		actionsIgnored.Inc()
		return nil
	}
}

func hasKey(u *user, pubKeyHex string) bool {
	for _, k := range u.pubKeys {
		if k == pubKeyHex {
			return true
		}
	}
	return false
}
