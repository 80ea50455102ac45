package cache

import "context"

// NullCache is a no-op cache that never stores anything.
// Used when caching is disabled with --no-cache.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Load always returns a cache miss.
func (c *NullCache) Load(ctx context.Context, key string) (Entry, bool, error) {
	return Entry{}, false, nil
}

// Save does nothing.
func (c *NullCache) Save(ctx context.Context, key string, e Entry) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NullCache) Clear(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
