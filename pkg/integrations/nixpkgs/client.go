// Package nixpkgs resolves the rustc version in the nixpkgs package index.
//
// The index is a gzip-compressed JSON document of several megabytes. The
// raw download is kept in a [cache.Cache] together with its ETag, and each
// lookup revalidates it with a conditional request: when the remote still
// reports the cached ETag the body is never read.
package nixpkgs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/semver"
	"github.com/matzehuels/decrepit/pkg/source"
)

const (
	// DefaultURL is the published nixpkgs package index.
	DefaultURL = "http://nixos.org/nixpkgs/packages.json.gz"

	// CacheKey names the cached index in the cache store.
	CacheKey = "nixos-packages.json.gz"

	// Package is the attribute looked up in the index.
	Package = "rustc"
)

var nameVersion = regexp.MustCompile(`rustc-(\d+[.]\d+[.]\d+)`)

type index struct {
	Packages map[string]json.RawMessage `json:"packages"`
}

type pkg struct {
	Name string `json:"name"`
}

// Client resolves the rolling nixpkgs release.
//
// All methods are safe for concurrent use by multiple goroutines when the
// cache is.
type Client struct {
	*integrations.Client
	cache  cache.Cache
	url    string
	logger *log.Logger
}

// NewClient creates a nixpkgs resolver. Pass cache.NewNullCache() to always
// download the full index.
func NewClient(c *integrations.Client, store cache.Cache, logger *log.Logger) *Client {
	if store == nil {
		store = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{Client: c, cache: store, url: DefaultURL, logger: logger}
}

// Resolve returns the rustc version in the current index. nixpkgs only has a
// rolling release, so any release other than [source.Rolling] is a
// PRECONDITION_VIOLATION.
func (c *Client) Resolve(ctx context.Context, release string) (semver.Version, error) {
	if release != source.Rolling {
		return semver.Unknown, errors.New(errors.ErrCodePrecondition, "nixos is a rolling-only release, got %q", release)
	}

	payload, cached, err := c.fetch(ctx)
	if err != nil {
		return semver.Unknown, err
	}

	name, err := packageName(payload)
	if err != nil {
		if cached && errors.Is(err, errors.ErrCodeScrape) {
			// A corrupt cache entry would otherwise be revalidated forever.
			if derr := c.cache.Delete(ctx, CacheKey); derr != nil {
				c.logger.Warn("failed to drop cached index", "error", derr)
			}
		}
		return semver.Unknown, err
	}

	m := nameVersion.FindStringSubmatch(name)
	if m == nil {
		return semver.Unknown, errors.New(errors.ErrCodeScrape, "no version in package name %q", name)
	}
	return semver.Parse(m[1])
}

// fetch returns the raw gzip payload and whether it came from the cache.
func (c *Client) fetch(ctx context.Context) ([]byte, bool, error) {
	entry, ok, err := c.cache.Load(ctx, CacheKey)
	if err != nil {
		c.logger.Warn("cache load failed", "key", CacheKey, "error", err)
		ok = false
	}
	c.logger.Debug("checking etag", "last_etag", entry.Token)

	res, err := c.GetConditional(ctx, c.url, entry.Token)
	if err != nil {
		return nil, false, err
	}
	if res.NotModified && ok {
		c.logger.Debug("using cached package data", "etag", entry.Token)
		return entry.Payload, true, nil
	}
	if res.Body == nil {
		return nil, false, errors.New(errors.ErrCodeScrape, "%s: not modified but nothing cached", c.url)
	}
	defer res.Body.Close()

	c.logger.Debug("checking etag", "cur_etag", res.ETag)
	if ok && res.ETag != "" && res.ETag == entry.Token {
		c.logger.Debug("using cached package data", "etag", entry.Token)
		return entry.Payload, true, nil
	}

	c.logger.Debug("redownloading package data")
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeNetwork, err, "read %s", c.url)
	}
	if res.ETag != "" {
		if err := c.cache.Save(ctx, CacheKey, cache.Entry{Token: res.ETag, Payload: data}); err != nil {
			c.logger.Warn("cache save failed", "key", CacheKey, "error", err)
		}
	}
	return data, false, nil
}

func packageName(payload []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeScrape, err, "decompress package index")
	}
	defer zr.Close()

	var idx index
	if err := json.NewDecoder(zr).Decode(&idx); err != nil {
		return "", errors.Wrap(errors.ErrCodeScrape, err, "decode package index")
	}
	raw, ok := idx.Packages[Package]
	if !ok {
		return "", errors.New(errors.ErrCodeNotFound, "package %q not in index", Package)
	}
	var p pkg
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", errors.Wrap(errors.ErrCodeScrape, err, "decode package %q", Package)
	}
	return p.Name, nil
}
