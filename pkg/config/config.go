// Package config loads decrepit's optional TOML configuration file.
//
// The file tunes the runtime (worker count, HTTP timeout, cache backend),
// adds or replaces entries of the source table and adds dated release
// profiles. Every key is optional:
//
//	workers       = 8
//	timeout       = "30s"
//	cache_backend = "file"        # file, redis or none
//	cache_dir     = "/var/cache/decrepit"
//	redis_addr    = "localhost:6379"
//	slow          = ["nixos"]
//
//	[sources.alpine]
//	url   = "https://pkgs.alpinelinux.org/packages?name=rust&branch={release}"
//	xpath = "//td[@class='version']/text()"
//	regex = '(?P<version>\d+[.]\d+[.]\d+)'
//
//	[sources.alpine-edge]
//	alias = "alpine"
//
//	[[profiles]]
//	date = "2018-01-01"
//	releases = { alpine = "v3.7", debian = "stretch" }
//
// Command-line flags override values from the file.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/pipeline"
	"github.com/matzehuels/decrepit/pkg/profile"
	"github.com/matzehuels/decrepit/pkg/source"
)

const appName = "decrepit"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the decoded configuration file.
type Config struct {
	Workers       int                     `toml:"workers"`
	Timeout       time.Duration           `toml:"timeout"`
	CacheBackend  string                  `toml:"cache_backend"`
	CacheDir      string                  `toml:"cache_dir"`
	RedisAddr     string                  `toml:"redis_addr"`
	RedisPassword string                  `toml:"redis_password"`
	RedisDB       int                     `toml:"redis_db"`
	RedisPrefix   string                  `toml:"redis_prefix"`
	Slow          []string                `toml:"slow"`
	Sources       map[string]SourceConfig `toml:"sources"`
	Profiles      []profile.Profile       `toml:"profiles"`
}

// SourceConfig is one [sources.<name>] table. Either Alias is set, or some
// of the rule fields are.
type SourceConfig struct {
	URL      string `toml:"url"`
	XPath    string `toml:"xpath"`
	Regex    string `toml:"regex"`
	Inherits string `toml:"inherits"`
	Alias    string `toml:"alias"`
}

func (s SourceConfig) rule() source.Rule {
	return source.Rule{URL: s.URL, XPath: s.XPath, Regex: s.Regex, Inherits: s.Inherits}
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Workers:      pipeline.DefaultWorkers,
		Timeout:      integrations.DefaultTimeout,
		CacheBackend: BackendFile,
		CacheDir:     DefaultCacheDir(),
		RedisPrefix:  cache.DefaultRedisPrefix,
		Slow:         slices.Clone(pipeline.DefaultSlow),
	}
}

// DefaultCacheDir returns $TMPDIR/decrepit.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), appName)
}

// DefaultPath returns the config file location following the XDG standard
// (~/.config/decrepit/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads and validates the file at path. Keys missing from the file keep
// their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeConfiguration, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeConfiguration, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeConfiguration, err, "config %s", path)
	}
	return cfg, nil
}

// LoadOptional is like Load but returns Default when the file does not
// exist.
func LoadOptional(path string) (Config, error) {
	if _, err := os.Stat(path); stderrors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks runtime settings, source entries and profiles.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return errors.New(errors.ErrCodeConfiguration, "workers must not be negative, got %d", c.Workers)
	}
	if c.Timeout < 0 {
		return errors.New(errors.ErrCodeConfiguration, "timeout must not be negative, got %s", c.Timeout)
	}
	switch c.CacheBackend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New(errors.ErrCodeConfiguration, "cache_backend %q requires redis_addr", c.CacheBackend)
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown cache_backend %q (want file, redis or none)", c.CacheBackend)
	}
	for _, name := range c.Slow {
		if err := errors.ValidateSourceName(name); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "slow")
		}
	}
	for name, s := range c.Sources {
		if err := s.validate(name); err != nil {
			return err
		}
	}
	for _, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s SourceConfig) validate(name string) error {
	if err := errors.ValidateSourceName(name); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "sources")
	}
	if s.Alias != "" {
		if s.rule() != (source.Rule{}) {
			return errors.New(errors.ErrCodeConfiguration, "source %s: alias cannot be combined with url, xpath, regex or inherits", name)
		}
		return nil
	}
	if s.rule() == (source.Rule{}) {
		return errors.New(errors.ErrCodeConfiguration, "source %s: needs alias or a scrape rule", name)
	}
	if s.URL != "" {
		if err := errors.ValidateURL(s.URL); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "source %s", name)
		}
	}
	return nil
}

// Definitions converts the [sources] tables into source table entries.
func (c Config) Definitions() map[string]source.Definition {
	defs := make(map[string]source.Definition, len(c.Sources))
	for name, s := range c.Sources {
		if s.Alias != "" {
			defs[name] = source.Alias(s.Alias)
		} else {
			defs[name] = source.Scrape(s.rule())
		}
	}
	return defs
}

// AllProfiles returns the built-in profiles plus the configured ones. A
// configured profile replaces a built-in profile with the same date.
func (c Config) AllProfiles() []profile.Profile {
	byDate := make(map[string]profile.Profile)
	for _, p := range profile.Defaults() {
		byDate[p.Date] = p
	}
	for _, p := range c.Profiles {
		byDate[p.Date] = p
	}
	out := make([]profile.Profile, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b profile.Profile) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out
}

// RedisConfig returns the settings for the redis cache backend.
func (c Config) RedisConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Prefix:   c.RedisPrefix,
	}
}
