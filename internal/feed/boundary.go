package feed

import "context"

// ProofClaim is the public claim extracted from a serialized membership proof.
// All values are decimal big-int strings, as produced by the prover.
type ProofClaim struct {
	MerkleRoot        string
	ExternalNullifier string
	NullifierHash     string
	Signal            string
}

// SignatureVerifier checks a signature over a message. Implementations must
// fail closed: any malformed input is an error, never a silent pass.
type SignatureVerifier interface {
	VerifySignature(pubKeyHex, signatureHex string, message []byte) error
}

// ProofVerifier wraps the external membership-proof system.
type ProofVerifier interface {
	// ParseProof extracts the claim without checking the proof itself.
	// Used during trusted replay, where crypto was already verified when
	// the entry was first accepted.
	ParseProof(serialized string) (ProofClaim, error)

	// VerifyProof fully verifies the proof and returns its claim.
	VerifyProof(ctx context.Context, serialized string) (ProofClaim, error)
}

// RootOracle attests that a merkle root is (or was) a valid group root.
// A true answer is cacheable indefinitely; roots never become invalid.
type RootOracle interface {
	IsValidRoot(ctx context.Context, root string) (bool, error)
}
