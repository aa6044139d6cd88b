package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RootOracle confirms merkle roots against an external attestation endpoint.
// A confirmed root stays valid forever, so positive answers are cached
// indefinitely; negative answers are re-asked, since a root that is unknown
// now may be confirmed later. Concurrent lookups for the same root share one
// in-flight request.
type RootOracle struct {
	url    string
	client *http.Client
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	valid map[string]struct{}
}

// NewRootOracle creates an oracle backed by the given attestation endpoint.
func NewRootOracle(endpoint string, logger *zap.Logger) *RootOracle {
	return &RootOracle{
		url:    endpoint,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		valid:  make(map[string]struct{}),
	}
}

// IsValidRoot implements feed.RootOracle.
func (o *RootOracle) IsValidRoot(ctx context.Context, root string) (bool, error) {
	o.mu.RLock()
	_, ok := o.valid[root]
	o.mu.RUnlock()
	if ok {
		return true, nil
	}

	v, err, _ := o.group.Do(root, func() (any, error) {
		return o.fetch(ctx, root)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (o *RootOracle) fetch(ctx context.Context, root string) (bool, error) {
	u := fmt.Sprintf("%s?root=%s", o.url, url.QueryEscape(root))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("verifier: build oracle request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verifier: root oracle: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verifier: root oracle returned %d", resp.StatusCode)
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("verifier: root oracle response: %w", err)
	}

	if out.Valid {
		o.markValid(root)
	}
	return out.Valid, nil
}

func (o *RootOracle) markValid(root string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.valid[root]; !ok {
		o.valid[root] = struct{}{}
		o.logger.Info("merkle root confirmed", zap.String("root", root))
	}
}

// Preload fetches the group's latest root and warms the cache, so the first
// login after startup does not pay an oracle round-trip. Errors are logged,
// not returned; preloading is best effort.
func (o *RootOracle) Preload(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url+"/latest", nil)
	if err != nil {
		return
	}
	resp, err := o.client.Do(req)
	if err != nil {
		o.logger.Warn("root preload failed", zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	var out struct {
		Root string `json:"root"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Root == "" {
		o.logger.Warn("root preload: bad response", zap.Error(err))
		return
	}
	o.markValid(out.Root)
}

// PreloadLoop preloads immediately, then on every tick until ctx is done.
func (o *RootOracle) PreloadLoop(ctx context.Context, interval time.Duration) {
	o.Preload(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Preload(ctx)
		}
	}
}
