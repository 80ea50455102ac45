// Package cache stores freshness-token records for resolvers that download
// large payloads.
//
// A record is an [Entry]: the token the remote attached to a payload (an
// HTTP ETag) together with the raw payload itself. A resolver loads the
// record before fetching, sends the token as a conditional request and
// saves a new record only when the remote reports a different token.
//
// # Backends
//
//   - [FileCache]: two files per key in a directory, written atomically
//   - [RedisCache]: one Redis hash per key, for caches shared between hosts
//   - [NullCache]: never stores anything (--no-cache)
//
// Records are never expired or evicted. Use Clear (decrepit cache clear) to
// reclaim space.
package cache

import (
	"context"

	"github.com/matzehuels/decrepit/pkg/errors"
)

// Entry is a freshness token paired with the payload downloaded with it.
type Entry struct {
	Token   string
	Payload []byte
}

// Cache persists entries beyond the process lifetime.
//
// Save must replace an entry atomically: a concurrent Load observes either
// the old entry or the new one, never a mix. Implementations are safe for
// concurrent use.
type Cache interface {
	// Load returns the entry stored under key. ok is false on a miss.
	Load(ctx context.Context, key string) (e Entry, ok bool, err error)

	// Save stores e under key, replacing any previous entry.
	Save(ctx context.Context, key string, e Entry) error

	// Delete removes the entry stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

func validateKey(key string) error {
	if err := errors.ValidateSourceName(key); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "cache key %q", key)
	}
	return nil
}
