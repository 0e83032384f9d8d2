package storage

import (
	"context"
	"slices"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// CachedStore serves loads from a ristretto cache in front of another
// store. Writes always go to the inner store; successful ones populate the
// cache. Cost is the payload size in bytes.
type CachedStore struct {
	inner AtomicStore
	cache *ristretto.Cache[string, []byte]
}

var _ AtomicStore = (*CachedStore)(nil)

func NewCachedStore(inner AtomicStore, maxCostBytes int64) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 10 * max(maxCostBytes/256, 100),
		MaxCost:     maxCostBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (c *CachedStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return slices.Clone(v), true, nil
	}
	v, ok, err := c.inner.Load(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.set(key, slices.Clone(v))
	return v, true, nil
}

func (c *CachedStore) WriteIfAbsent(ctx context.Context, key string, payload []byte) (bool, error) {
	inserted, err := c.inner.WriteIfAbsent(ctx, key, payload)
	if err == nil && inserted {
		c.set(key, slices.Clone(payload))
	}
	return inserted, err
}

// Hits and Misses count cache lookups since creation.
func (c *CachedStore) Hits() uint64 { return c.cache.Metrics.Hits() }
func (c *CachedStore) Misses() uint64 { return c.cache.Metrics.Misses() }

func (c *CachedStore) Close() error {
	c.cache.Close()
	return c.inner.Close()
}

func (c *CachedStore) set(key string, v []byte) {
	c.cache.Set(key, v, int64(max(len(v), 1)))
	c.cache.Wait()
}
