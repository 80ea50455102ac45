package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/decrepit/pkg/observability"
)

const tokenSuffix = ".etag"

// FileCache implements a file-based cache for CLI usage.
// Each entry is stored as two files in the cache directory: "<key>.etag"
// holding the token and "<key>" holding the raw payload.
type FileCache struct {
	mu  sync.RWMutex
	dir string
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Load reads the entry stored under key. A missing token or payload file is
// a miss.
func (c *FileCache) Load(ctx context.Context, key string) (Entry, bool, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	token, err := os.ReadFile(c.path(key) + tokenSuffix)
	if os.IsNotExist(err) {
		observability.Cache().OnCacheMiss(ctx, key)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read token: %w", err)
	}

	payload, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		observability.Cache().OnCacheMiss(ctx, key)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read payload: %w", err)
	}

	observability.Cache().OnCacheHit(ctx, key)
	return Entry{Token: strings.TrimSpace(string(token)), Payload: payload}, true, nil
}

// Save writes the payload and then the token, each through a temporary file
// renamed into place.
func (c *FileCache) Save(ctx context.Context, key string, e Entry) error {
	if err := validateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeAtomic(c.path(key), e.Payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	if err := writeAtomic(c.path(key)+tokenSuffix, []byte(e.Token)); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	observability.Cache().OnCacheSet(ctx, key, len(e.Payload))
	return nil
}

// Delete removes both files of an entry.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range []string{c.path(key) + tokenSuffix, c.path(key)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Clear removes the cache directory and recreates it empty.
func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	return os.MkdirAll(c.dir, 0755)
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key)
}

// writeAtomic writes data to a temporary file in the target's directory and
// renames it over path, so readers never see a partially written file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
