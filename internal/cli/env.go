package cli

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/config"
	"github.com/matzehuels/decrepit/pkg/distros"
	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/integrations"
	"github.com/matzehuels/decrepit/pkg/pipeline"
	"github.com/matzehuels/decrepit/pkg/profile"
	"github.com/matzehuels/decrepit/pkg/resolve"
	"github.com/matzehuels/decrepit/pkg/scrape"
	"github.com/matzehuels/decrepit/pkg/source"
)

// =============================================================================
// Runtime Environment
// =============================================================================

// env is everything a check needs, built once per command invocation.
type env struct {
	cfg    config.Config
	cache  cache.Cache
	table  *source.Table
	runner *pipeline.Runner
}

// loadConfig reads --config, or the default location if it exists.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadOptional(path)
}

// newEnv wires config, cache, HTTP client, source table, engine and runner.
// The caller must Close the returned env.
func (c *CLI) newEnv(ctx context.Context) (*env, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := newCache(ctx, cfg, c.noCache)
	if err != nil {
		return nil, err
	}

	logger := loggerFromContext(ctx)
	client := integrations.NewClient(cfg.Timeout, integrations.DefaultHeaders())
	builtin, err := distros.Table(client, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	table, err := builtin.With(cfg.Definitions())
	if err != nil {
		store.Close()
		return nil, err
	}

	engine := resolve.New(table, scrape.New(client), logger)
	return &env{
		cfg:    cfg,
		cache:  store,
		table:  table,
		runner: pipeline.NewRunner(engine, logger),
	}, nil
}

// Close releases the cache backend.
func (e *env) Close() error {
	return e.cache.Close()
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.CacheBackend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.RedisConfig())
	default:
		dir := cfg.CacheDir
		if dir == "" {
			dir = config.DefaultCacheDir()
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Check Planning
// =============================================================================

// plan is the resolved input of one check: which profile applies and which
// sources run at which release.
type plan struct {
	Date     string
	Profile  profile.Profile
	Releases map[string]string
	Include  []string
}

// newPlan selects the profile for dateArg and applies --distro values.
// Names unknown to the source table are rejected.
func (e *env) newPlan(dateArg string, distroArgs []string, now time.Time) (*plan, error) {
	date, err := profile.ParseDate(dateArg, now)
	if err != nil {
		return nil, err
	}
	p, err := profile.Select(e.cfg.AllProfiles(), date)
	if err != nil {
		return nil, err
	}
	sel, err := profile.ParseSelection(distroArgs)
	if err != nil {
		return nil, err
	}

	releases := p.With(sel.Overrides)
	for name := range releases {
		if _, ok := e.table.Lookup(name); !ok {
			if slices.Contains(sel.Names, name) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "unknown distro %q", name)
			}
			return nil, errors.New(errors.ErrCodeConfiguration, "profile %s names unknown distro %q", p.Date, name)
		}
	}
	for _, name := range sel.Names {
		if _, ok := e.table.Lookup(name); !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown distro %q", name)
		}
	}

	return &plan{Date: date, Profile: p, Releases: releases, Include: sel.Names}, nil
}

// options converts the plan into batch options.
func (p *plan) options(cfg config.Config, fast bool) pipeline.Options {
	return pipeline.Options{
		Requests: pipeline.Requests(p.Releases),
		Include:  p.Include,
		Fast:     fast,
		Slow:     cfg.Slow,
		Workers:  cfg.Workers,
	}
}
