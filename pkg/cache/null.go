package cache

import "context"

// NullCache is a no-op cache that never stores anything.
// Used when caching is disabled and in tests.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// Put does nothing and hands back src unchanged.
func (c *NullCache) Put(ctx context.Context, key, src string) (string, error) {
	return src, nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
