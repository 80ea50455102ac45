// Package pipeline provides the batch coordinator for decrepit.
//
// This package runs one version lookup per requested source on a bounded
// worker pool and collects the results into a deterministic [Report]. The
// CLI and the HTTP API both go through it, so filtering, ordering and the
// minimum-version rule behave the same at every entry point.
//
// # Usage
//
// Create a Runner around a dispatch engine and execute a batch:
//
//	runner := pipeline.NewRunner(engine, logger)
//	report, err := runner.Execute(ctx, pipeline.Options{
//	    Requests: pipeline.Requests(releases),
//	    Fast:     true,
//	})
//	if err != nil {
//	    return err
//	}
//	v, ok := report.Minimum()
//
// A lookup that fails remotely shows up in the report as 0.0.0. Execute only
// returns an error when a lookup reports a configuration problem or ctx is
// cancelled; the remaining lookups are then abandoned.
package pipeline

import (
	"cmp"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/semver"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultWorkers bounds the number of lookups in flight.
const DefaultWorkers = 8

// DefaultSlow lists sources that take more than a few seconds to check and
// are skipped by a fast run.
var DefaultSlow = []string{"nixos"}

// =============================================================================
// Options - Batch Configuration
// =============================================================================

// Request asks for the version of one source at one release.
type Request struct {
	Source  string `json:"distro"`
	Release string `json:"release"`
}

// Requests turns a release map into requests sorted by source name.
func Requests(releases map[string]string) []Request {
	reqs := make([]Request, 0, len(releases))
	for _, name := range slices.Sorted(maps.Keys(releases)) {
		reqs = append(reqs, Request{Source: name, Release: releases[name]})
	}
	return reqs
}

// Options contains all configuration for a batch.
type Options struct {
	// Requests to run, before filtering.
	Requests []Request

	// Include restricts the batch to these sources. Empty means all.
	Include []string

	// Fast drops the sources listed in Slow.
	Fast bool

	// Slow overrides DefaultSlow.
	Slow []string

	// Workers bounds concurrent lookups. Zero selects DefaultWorkers.
	Workers int

	// Logger receives per-lookup timings at debug level.
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks requests and applies defaults.
func (o *Options) ValidateAndSetDefaults() error {
	for _, r := range o.Requests {
		if err := errors.ValidateSourceName(r.Source); err != nil {
			return err
		}
		if err := errors.ValidateRelease(r.Release); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "release of %s", r.Source)
		}
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Slow == nil {
		o.Slow = DefaultSlow
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Selected returns the requests that survive the Include and Fast filters,
// in their original order.
func (o *Options) Selected() []Request {
	var out []Request
	for _, r := range o.Requests {
		if o.Fast && slices.Contains(o.Slow, r.Source) {
			continue
		}
		if len(o.Include) > 0 && !slices.Contains(o.Include, r.Source) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// =============================================================================
// Results
// =============================================================================

// Result is the version found for one request.
type Result struct {
	Source   string         `json:"distro"`
	Release  string         `json:"release"`
	Version  semver.Version `json:"version"`
	Duration time.Duration  `json:"-"`
}

// Report contains the outputs of a batch run.
type Report struct {
	// RunID correlates log lines of one batch.
	RunID string

	// Results sorted by (version, source).
	Results []Result

	// Duration is the wall time of the batch.
	Duration time.Duration
}

// Sort orders results by version, then source name, ascending.
func Sort(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := a.Version.Compare(b.Version); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
}

// Minimum returns the lowest version that is not the unknown sentinel.
// ok is false when every result is unknown or there are none.
func (r *Report) Minimum() (v semver.Version, ok bool) {
	for _, res := range r.Results {
		if res.Version.IsUnknown() {
			continue
		}
		if !ok || res.Version.Less(v) {
			v, ok = res.Version, true
		}
	}
	return v, ok
}

// Unknown counts results that degraded to the sentinel version.
func (r *Report) Unknown() int {
	n := 0
	for _, res := range r.Results {
		if res.Version.IsUnknown() {
			n++
		}
	}
	return n
}

// Releases returns the release each reported source was checked at.
func (r *Report) Releases() map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Source] = res.Release
	}
	return out
}
