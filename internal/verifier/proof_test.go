package verifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dcposch/zucast/internal/verifier"
	"go.uber.org/zap"
)

// serializeProof builds the envelope-wrapped proof document the clients send.
func serializeProof(t *testing.T, root, extNullifier, nullifierHash, signal string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"claim": map[string]string{
			"merkleRoot":        root,
			"externalNullifier": extNullifier,
			"nullifierHash":     nullifierHash,
			"signal":            signal,
		},
		"proof": []string{"0x1", "0x2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, err := json.Marshal(map[string]string{
		"type": "semaphore-group-signal",
		"pcd":  string(body),
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(env)
}

func TestParseProof(t *testing.T) {
	v := verifier.NewRemoteProofVerifier("http://unused", zap.NewNop())

	serialized := serializeProof(t, "123", "42", "999", "777")
	claim, err := v.ParseProof(serialized)
	if err != nil {
		t.Fatalf("ParseProof: %v", err)
	}
	if claim.MerkleRoot != "123" || claim.ExternalNullifier != "42" ||
		claim.NullifierHash != "999" || claim.Signal != "777" {
		t.Errorf("claim = %+v", claim)
	}

	bad := []struct {
		name       string
		serialized string
	}{
		{"not json", "{nope"},
		{"body not json", `{"type":"x","pcd":"{bad"}`},
		{"missing nullifier hash", serializeProof(t, "123", "42", "", "777")},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.ParseProof(tc.serialized); err == nil {
				t.Error("malformed proof parsed")
			}
		})
	}
}

func TestVerifyProofRemote(t *testing.T) {
	serialized := serializeProof(t, "123", "42", "999", "777")

	var gotBody struct {
		PCD string `json:"pcd"`
	}
	valid := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]bool{"valid": valid}) //nolint:errcheck
	}))
	defer srv.Close()

	v := verifier.NewRemoteProofVerifier(srv.URL, zap.NewNop())

	claim, err := v.VerifyProof(context.Background(), serialized)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if claim.NullifierHash != "999" {
		t.Errorf("nullifierHash = %q, want %q", claim.NullifierHash, "999")
	}
	// The proof travels to the service untouched.
	if gotBody.PCD != serialized {
		t.Error("service did not receive the exact serialized proof")
	}

	valid = false
	if _, err := v.VerifyProof(context.Background(), serialized); err == nil {
		t.Error("service said invalid, VerifyProof returned nil")
	}
}

func TestVerifyProofServiceErrors(t *testing.T) {
	serialized := serializeProof(t, "123", "42", "999", "777")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := verifier.NewRemoteProofVerifier(srv.URL, zap.NewNop())
	if _, err := v.VerifyProof(context.Background(), serialized); err == nil {
		t.Error("5xx from the service, VerifyProof returned nil")
	}

	// Unreachable service.
	down := verifier.NewRemoteProofVerifier("http://127.0.0.1:0", zap.NewNop())
	if _, err := down.VerifyProof(context.Background(), serialized); err == nil {
		t.Error("unreachable service, VerifyProof returned nil")
	}
}
