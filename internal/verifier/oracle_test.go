package verifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dcposch/zucast/internal/verifier"
	"go.uber.org/zap"
)

func TestRootOracleCachesPositives(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		valid := r.URL.Query().Get("root") == "good"
		json.NewEncoder(w).Encode(map[string]bool{"valid": valid}) //nolint:errcheck
	}))
	defer srv.Close()

	o := verifier.NewRootOracle(srv.URL, zap.NewNop())
	ctx := context.Background()

	ok, err := o.IsValidRoot(ctx, "good")
	if err != nil || !ok {
		t.Fatalf("IsValidRoot(good) = %v, %v; want true, nil", ok, err)
	}
	// Confirmed roots are served from cache forever.
	for i := 0; i < 3; i++ {
		if ok, err := o.IsValidRoot(ctx, "good"); err != nil || !ok {
			t.Fatalf("cached IsValidRoot(good) = %v, %v", ok, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("oracle hit %d times for a confirmed root, want 1", got)
	}

	// Negative answers are asked again every time.
	for i := 0; i < 2; i++ {
		if ok, err := o.IsValidRoot(ctx, "unknown"); err != nil || ok {
			t.Fatalf("IsValidRoot(unknown) = %v, %v; want false, nil", ok, err)
		}
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("total oracle hits = %d, want 3", got)
	}
}

func TestRootOracleErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	o := verifier.NewRootOracle(srv.URL, zap.NewNop())
	if _, err := o.IsValidRoot(context.Background(), "any"); err == nil {
		t.Error("5xx from the oracle, IsValidRoot returned nil error")
	}
}

func TestRootOraclePreload(t *testing.T) {
	var rootHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest" {
			json.NewEncoder(w).Encode(map[string]string{"root": "fresh"}) //nolint:errcheck
			return
		}
		rootHits.Add(1)
		json.NewEncoder(w).Encode(map[string]bool{"valid": false}) //nolint:errcheck
	}))
	defer srv.Close()

	o := verifier.NewRootOracle(srv.URL, zap.NewNop())
	o.Preload(context.Background())

	// The preloaded root answers from cache without an oracle round-trip.
	ok, err := o.IsValidRoot(context.Background(), "fresh")
	if err != nil || !ok {
		t.Fatalf("IsValidRoot(fresh) = %v, %v; want true, nil", ok, err)
	}
	if got := rootHits.Load(); got != 0 {
		t.Errorf("preloaded root still hit the oracle %d times", got)
	}
}

func TestRootOraclePreloadBestEffort(t *testing.T) {
	// Preload against a dead endpoint must not panic or poison the oracle.
	o := verifier.NewRootOracle("http://127.0.0.1:0", zap.NewNop())
	o.Preload(context.Background())
}
