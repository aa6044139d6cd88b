// Package verifier wraps the external cryptographic collaborators — the
// signature scheme, the membership-proof system, and the root-freshness
// oracle — behind the interfaces the feed engine consumes.
package verifier

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ECDSAVerifier verifies P-256 signatures as produced by WebCrypto clients:
// raw uncompressed public keys (0x04 || X || Y) and raw r || s signatures,
// both hex encoded, over the SHA-256 digest of the message.
//
// It fails closed: malformed keys, off-curve points and bad signature
// lengths are all errors.
type ECDSAVerifier struct{}

// VerifySignature implements feed.SignatureVerifier.
func (ECDSAVerifier) VerifySignature(pubKeyHex, signatureHex string, message []byte) error {
	pub, err := ParsePubKey(pubKeyHex)
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("verifier: signature not hex: %w", err)
	}
	if len(sig) != 64 {
		return fmt.Errorf("verifier: signature must be 64 bytes r||s, got %d", len(sig))
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])

	digest := sha256.Sum256(message)
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return fmt.Errorf("verifier: invalid signature")
	}
	return nil
}

// ParsePubKey decodes a raw uncompressed hex P-256 public key.
func ParsePubKey(pubKeyHex string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("verifier: public key not hex: %w", err)
	}
	if len(raw) != 65 || raw[0] != 0x04 {
		return nil, fmt.Errorf("verifier: public key must be 65 bytes uncompressed, got %d", len(raw))
	}

	curve := elliptic.P256()
	x := new(big.Int).SetBytes(raw[1:33])
	y := new(big.Int).SetBytes(raw[33:65])
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("verifier: public key point not on curve")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// KeyHash maps a hex public key to the decimal field-sized value a membership
// proof must carry as its signal: SHA-256 of the key string, shifted right a
// byte to fit the proof system's field.
func KeyHash(pubKeyHex string) string {
	h := sha256.Sum256([]byte(pubKeyHex))
	n := new(big.Int).SetBytes(h[:])
	n.Rsh(n, 8)
	return n.String()
}
