package cache

import (
	"context"
	"time"
)

// Layered reads through a local cache before a shared one and fills the
// local layer on shared hits. Shared-layer errors are treated as misses.
type Layered struct {
	local  BytesCache
	shared BytesCache
	// localTTL bounds how long a shared hit is kept locally.
	localTTL time.Duration
}

func NewLayered(local, shared BytesCache, localTTL time.Duration) *Layered {
	return &Layered{local: local, shared: shared, localTTL: localTTL}
}

func (c *Layered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := c.local.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}
	if c.shared == nil {
		return nil, false, nil
	}
	b, ok, err := c.shared.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, nil
	}
	_ = c.local.SetBytes(ctx, key, b, c.localTTL)
	return b, true, nil
}

func (c *Layered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = c.local.SetBytes(ctx, key, value, minTTL(ttl, c.localTTL))
	if c.shared == nil {
		return nil
	}
	return c.shared.SetBytes(ctx, key, value, ttl)
}

func minTTL(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b <= 0 || a < b {
		return a
	}
	return b
}
