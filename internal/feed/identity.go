package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// verifyExecAddKey verifies a membership proof and binds a signing key to the
// anonymous identity named by the proof's nullifier hash, creating the
// identity on first contact. addKey is the only transaction kind without a
// pre-existing uid, so it is exempt from the per-identity rate limiter.
//
// Caller holds the write lock.
func (e *Engine) verifyExecAddKey(ctx context.Context, tx Transaction, trusted bool) (*user, error) {
	var claim ProofClaim
	var err error
	if trusted {
		claim, err = e.proofs.ParseProof(tx.PCD)
	} else {
		claim, err = e.proofs.VerifyProof(ctx, tx.PCD)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: membership proof: %v", ErrUnauthorized, err)
	}

	// The proof must be bound to this application and to this exact key,
	// otherwise a valid proof could be replayed to register someone else's
	// key or a key for a different app.
	if claim.ExternalNullifier != e.cfg.ExternalNullifier {
		return nil, fmt.Errorf("%w: wrong external nullifier %q", ErrUnauthorized, claim.ExternalNullifier)
	}
	if claim.Signal != e.cfg.KeyHash(tx.PubKeyHex) {
		return nil, fmt.Errorf("%w: proof signal does not match public key", ErrUnauthorized)
	}

	// Reject proofs against groups we have never seen. Skipped on trusted
	// replay: historical roots were attested when first accepted.
	if !trusted {
		ok, err := e.oracle.IsValidRoot(ctx, claim.MerkleRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: root oracle: %v", ErrUnauthorized, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown merkle root %q", ErrUnauthorized, claim.MerkleRoot)
		}
	}

	// One key, one identity, globally.
	if _, taken := e.byPubKey[tx.PubKeyHex]; taken {
		return nil, fmt.Errorf("%w: public key already registered", ErrDuplicate)
	}

	u := e.byHash[claim.NullifierHash]
	if u == nil {
		u = &user{
			uid:           len(e.users),
			nullifierHash: claim.NullifierHash,
			profile:       DefaultProfile(),
		}
		e.users = append(e.users, u)
		e.byHash[claim.NullifierHash] = u
		usersTotal.Set(float64(len(e.users)))
		e.logger.Info("new user", zap.Int("uid", u.uid))
	}

	u.pubKeys = append(u.pubKeys, tx.PubKeyHex)
	e.byPubKey[tx.PubKeyHex] = u
	return u, nil
}
