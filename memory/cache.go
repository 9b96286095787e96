package memory

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// CachedEncoder memoizes Encode calls. Retrieval re-encodes the same
// query shapes constantly and semantic encoding is the expensive step, so
// a small in-process cache in front of any Encoder pays for itself.
// ErrUnavailable and other failures are never cached.
type CachedEncoder struct {
	inner Encoder
	cache *ristretto.Cache
}

// NewCachedEncoder wraps inner with a ristretto cache holding roughly
// maxEntries vectors.
func NewCachedEncoder(inner Encoder, maxEntries int64) (*CachedEncoder, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEncoder{inner: inner, cache: cache}, nil
}

// Encode returns the cached vector for text, computing and caching it on
// a miss. Cached slices must not be mutated by callers.
func (c *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

// Dimensions reports the wrapped encoder's vector size.
func (c *CachedEncoder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases the cache.
func (c *CachedEncoder) Close() {
	c.cache.Close()
}
