package feed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

var ctx = context.Background()

// testKeyHash stands in for the real proof-signal hash.
func testKeyHash(pubKeyHex string) string {
	return "hash:" + pubKeyHex
}

// fakeSigs accepts every signature unless reject is set.
type fakeSigs struct {
	reject bool
	calls  int
}

func (f *fakeSigs) VerifySignature(pubKeyHex, signatureHex string, message []byte) error {
	f.calls++
	if f.reject {
		return errors.New("bad signature")
	}
	return nil
}

// fakeProofs treats the serialized proof as a bare JSON claim.
type fakeProofs struct {
	rejectVerify bool
	verifyCalls  int
}

func (f *fakeProofs) ParseProof(serialized string) (feed.ProofClaim, error) {
	var claim feed.ProofClaim
	if err := json.Unmarshal([]byte(serialized), &claim); err != nil {
		return feed.ProofClaim{}, err
	}
	return claim, nil
}

func (f *fakeProofs) VerifyProof(_ context.Context, serialized string) (feed.ProofClaim, error) {
	f.verifyCalls++
	if f.rejectVerify {
		return feed.ProofClaim{}, errors.New("invalid proof")
	}
	return f.ParseProof(serialized)
}

// fakeOracle accepts the roots in valid.
type fakeOracle struct {
	valid map[string]bool
	calls int
}

func (f *fakeOracle) IsValidRoot(_ context.Context, root string) (bool, error) {
	f.calls++
	return f.valid[root], nil
}

// harness bundles an engine with its fakes and a controllable clock.
type harness struct {
	eng    *feed.Engine
	sigs   *fakeSigs
	proofs *fakeProofs
	oracle *fakeOracle
	nowMs  int64
}

func newHarness(t *testing.T) *harness {
	return newHarnessCfg(t, nil)
}

// newHarnessCfg builds a harness, letting the test tweak the engine config.
func newHarnessCfg(t *testing.T, tweak func(*feed.Config)) *harness {
	t.Helper()
	h := &harness{
		sigs:   &fakeSigs{},
		proofs: &fakeProofs{},
		oracle: &fakeOracle{valid: map[string]bool{"root1": true}},
		nowMs:  1_700_000_000_000,
	}
	cfg := feed.Config{
		KeyHash: testKeyHash,
		Now:     func() time.Time { return time.UnixMilli(h.nowMs) },
	}
	if tweak != nil {
		tweak(&cfg)
	}
	h.eng = feed.New(h.sigs, h.proofs, h.oracle, cfg, zap.NewNop())
	return h
}

// initEmpty replays an empty log so the engine is ready.
func (h *harness) initEmpty(t *testing.T) {
	t.Helper()
	if err := h.eng.Init(ctx, nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

// addKeyTx builds an addKey transaction whose fake proof names the identity.
func addKeyTx(nullifierHash, pubKey string) feed.Transaction {
	claim, _ := json.Marshal(feed.ProofClaim{
		MerkleRoot:        "root1",
		ExternalNullifier: "42",
		NullifierHash:     nullifierHash,
		Signal:            testKeyHash(pubKey),
	})
	return feed.Transaction{Type: feed.TxAddKey, PCD: string(claim), PubKeyHex: pubKey}
}

// addKeyTxClaim is addKeyTx with every claim field spelled out.
func addKeyTxClaim(nullifierHash, pubKey, root, extNullifier string) feed.Transaction {
	claim, _ := json.Marshal(feed.ProofClaim{
		MerkleRoot:        root,
		ExternalNullifier: extNullifier,
		NullifierHash:     nullifierHash,
		Signal:            testKeyHash(pubKey),
	})
	return feed.Transaction{Type: feed.TxAddKey, PCD: string(claim), PubKeyHex: pubKey}
}

// actTx builds a signed action transaction.
func actTx(uid int, pubKey string, action feed.Action) feed.Transaction {
	payload, _ := json.Marshal(action)
	return feed.Transaction{
		Type:       feed.TxAct,
		UID:        uid,
		PubKeyHex:  pubKey,
		Signature:  "sig",
		ActionJSON: string(payload),
	}
}

// register creates an identity and returns it.
func (h *harness) register(t *testing.T, nullifierHash, pubKey string) feed.PublicUser {
	t.Helper()
	u, err := h.eng.Append(ctx, addKeyTx(nullifierHash, pubKey))
	if err != nil {
		t.Fatalf("register %s: %v", nullifierHash, err)
	}
	return u
}

// post creates a post (or reply, when parentID != nil) and returns its id.
func (h *harness) post(t *testing.T, uid int, pubKey, content string, parentID *int) int {
	t.Helper()
	_, err := h.eng.Append(ctx, actTx(uid, pubKey, feed.Action{
		Type:     feed.ActionPost,
		ParentID: parentID,
		Content:  content,
	}))
	if err != nil {
		t.Fatalf("post by uid %d: %v", uid, err)
	}
	return h.eng.GetStatus().NumPosts - 1
}

func (h *harness) like(uid int, pubKey string, postID int) error {
	_, err := h.eng.Append(ctx, actTx(uid, pubKey, feed.Action{Type: feed.ActionLike, PostID: postID}))
	return err
}

func (h *harness) unlike(uid int, pubKey string, postID int) error {
	_, err := h.eng.Append(ctx, actTx(uid, pubKey, feed.Action{Type: feed.ActionUnlike, PostID: postID}))
	return err
}

func intPtr(v int) *int { return &v }
