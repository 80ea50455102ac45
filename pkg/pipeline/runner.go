package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/decrepit/pkg/observability"
	"github.com/matzehuels/decrepit/pkg/semver"
)

// Resolver looks up one source. *resolve.Engine satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, name, release string) (semver.Version, error)
}

// Runner executes batches against a Resolver.
//
// The Runner is stateless except for the resolver and logger; it doesn't
// store results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Resolver Resolver
	Logger   *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(r Resolver, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Resolver: r, Logger: logger}
}

// Execute runs one lookup per selected request and returns the sorted
// report. Remote failures are already folded into 0.0.0 by the resolver;
// any error it does return aborts the batch.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	runID := uuid.NewString()
	logger := opts.Logger.With("run", runID)
	reqs := opts.Selected()
	logger.Debug("getting package versions", "sources", len(reqs), "workers", opts.Workers)

	hooks := observability.Resolve()
	hooks.OnBatchStart(ctx, runID, len(reqs))
	start := time.Now()

	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			began := time.Now()
			v, err := r.Resolver.Resolve(gctx, req.Source, req.Release)
			if err != nil {
				return fmt.Errorf("%s: %w", req.Source, err)
			}
			took := time.Since(began)
			logger.Debug("resolved", "source", req.Source, "release", req.Release, "version", v, "took", took)
			results[i] = Result{Source: req.Source, Release: req.Release, Version: v, Duration: took}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	Sort(results)
	report := &Report{RunID: runID, Results: results, Duration: time.Since(start)}
	logger.Debug("batch complete", "took", report.Duration, "unknown", report.Unknown())
	hooks.OnBatchComplete(ctx, runID, report.Unknown(), report.Duration)
	return report, nil
}
