package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dcposch/zucast/internal/feed"
	"go.uber.org/zap"
)

// proofEnvelope is the outer wrapper of a serialized membership proof:
// a type tag plus the proof itself, JSON-encoded as a string.
type proofEnvelope struct {
	Type string `json:"type"`
	PCD  string `json:"pcd"`
}

// proofBody is the inner proof document. Only the claim matters here; the
// proof points are opaque and handed to the verification service untouched.
type proofBody struct {
	Claim struct {
		MerkleRoot        string `json:"merkleRoot"`
		ExternalNullifier string `json:"externalNullifier"`
		NullifierHash     string `json:"nullifierHash"`
		Signal            string `json:"signal"`
	} `json:"claim"`
}

// parseClaim extracts the public claim from a serialized proof without
// checking the proof itself.
func parseClaim(serialized string) (feed.ProofClaim, error) {
	var env proofEnvelope
	if err := json.Unmarshal([]byte(serialized), &env); err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof envelope: %w", err)
	}
	var body proofBody
	if err := json.Unmarshal([]byte(env.PCD), &body); err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof body: %w", err)
	}
	c := body.Claim
	if c.NullifierHash == "" {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof claim missing nullifier hash")
	}
	return feed.ProofClaim{
		MerkleRoot:        c.MerkleRoot,
		ExternalNullifier: c.ExternalNullifier,
		NullifierHash:     c.NullifierHash,
		Signal:            c.Signal,
	}, nil
}

// RemoteProofVerifier checks membership proofs against an external
// verification service. The groth16 math itself stays on the other side of
// the HTTP boundary.
type RemoteProofVerifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewRemoteProofVerifier creates a verifier that POSTs serialized proofs to url.
func NewRemoteProofVerifier(url string, logger *zap.Logger) *RemoteProofVerifier {
	return &RemoteProofVerifier{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// ParseProof implements feed.ProofVerifier.
func (v *RemoteProofVerifier) ParseProof(serialized string) (feed.ProofClaim, error) {
	return parseClaim(serialized)
}

// VerifyProof implements feed.ProofVerifier. It parses the claim locally and
// delegates proof validity to the verification service.
func (v *RemoteProofVerifier) VerifyProof(ctx context.Context, serialized string) (feed.ProofClaim, error) {
	claim, err := parseClaim(serialized)
	if err != nil {
		return feed.ProofClaim{}, err
	}

	reqBody, err := json.Marshal(map[string]string{"pcd": serialized})
	if err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof service returned %d", resp.StatusCode)
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return feed.ProofClaim{}, fmt.Errorf("verifier: proof service response: %w", err)
	}
	if !out.Valid {
		return feed.ProofClaim{}, fmt.Errorf("verifier: invalid membership proof")
	}

	v.logger.Debug("proof verified", zap.String("nullifierHash", claim.NullifierHash))
	return claim, nil
}
