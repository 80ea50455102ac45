// Package resolve implements the dispatch engine: it maps a source name and
// release argument to a version by following the source table.
//
// # Failure Boundary
//
// [Engine.Resolve] is where remote failures stop. Any error that describes
// the outside world (MALFORMED_VERSION, SCRAPE_ERROR, NOT_FOUND,
// NETWORK_ERROR) and any panic raised by a resolver are logged at debug
// level and turned into [semver.Unknown]. A broken or redesigned page thus
// costs the batch one source, never the whole comparison.
//
// Configuration failures are not swallowed. An unknown source name, a
// dangling alias or a PRECONDITION_VIOLATION (such as asking a rolling-only
// source for a numbered release) is returned to the caller, as is
// cancellation of ctx.
package resolve

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/observability"
	"github.com/matzehuels/decrepit/pkg/semver"
	"github.com/matzehuels/decrepit/pkg/source"
)

// Scraper evaluates a flattened scrape rule. *scrape.Scraper satisfies it.
type Scraper interface {
	Scrape(ctx context.Context, rule source.Rule, release string) (semver.Version, error)
}

// Engine dispatches lookups through a source table. It is safe for
// concurrent use.
type Engine struct {
	table   *source.Table
	scraper Scraper
	logger  *log.Logger
}

// New creates an Engine. A nil logger falls back to log.Default().
func New(table *source.Table, scraper Scraper, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{table: table, scraper: scraper, logger: logger}
}

// Table returns the source table the engine dispatches through.
func (e *Engine) Table() *source.Table { return e.table }

// Resolve returns the version of name for release. Remote failures yield
// (semver.Unknown, nil); see the package documentation for what propagates.
func (e *Engine) Resolve(ctx context.Context, name, release string) (v semver.Version, err error) {
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, name, release)
	start := time.Now()
	defer func() {
		hooks.OnResolveComplete(ctx, name, release, v.String(), time.Since(start), err)
	}()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("resolve panicked",
				"source", name,
				"release", release,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			v, err = semver.Unknown, nil
		}
	}()

	v, err = e.dispatch(ctx, name, release, 0)
	if err == nil {
		return v, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return semver.Unknown, ctxErr
	}
	if !errors.IsRemote(err) {
		return semver.Unknown, err
	}
	e.logger.Debug("resolve failed",
		"source", name,
		"release", release,
		"code", errors.GetCode(err),
		"error", err,
	)
	return semver.Unknown, nil
}

func (e *Engine) dispatch(ctx context.Context, name, release string, depth int) (semver.Version, error) {
	def, ok := e.table.Lookup(name)
	if !ok {
		return semver.Unknown, errors.New(errors.ErrCodeConfiguration, "unknown source %q", name)
	}
	e.logger.Debug("dispatch", "source", name, "kind", def.Kind, "release", release)

	switch def.Kind {
	case source.KindCustom:
		return def.Resolver.Resolve(ctx, release)
	case source.KindAlias:
		if depth >= e.table.Len() {
			return semver.Unknown, errors.New(errors.ErrCodeConfiguration, "alias cycle through %q", name)
		}
		return e.dispatch(ctx, def.Alias, release, depth+1)
	case source.KindScrape:
		rule, err := e.table.Rule(name)
		if err != nil {
			return semver.Unknown, err
		}
		return e.scraper.Scrape(ctx, rule, release)
	default:
		return semver.Unknown, errors.New(errors.ErrCodeConfiguration, "source %q has invalid kind %d", name, def.Kind)
	}
}
