package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/observability"
	"github.com/matzehuels/decrepit/pkg/report"
)

// checkOpts holds the command-line flags for a version check.
type checkOpts struct {
	all         bool     // print every distribution instead of the minimum
	distros     []string // name[:release] selections and overrides
	fast        bool     // skip slow distributions
	json        bool     // JSON output (with --all)
	markdown    bool     // Markdown table (with --all)
	showRelease bool     // add the release column (with --all)
}

// format returns the report format selected by the flags.
func (o *checkOpts) format() report.Format {
	switch {
	case o.json:
		return report.FormatJSON
	case o.markdown:
		return report.FormatMarkdown
	default:
		return report.FormatTable
	}
}

// checkCommand creates the version check command, which is also the root
// command of the CLI.
func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "decrepit [DATE]",
		Short: "Find the oldest rustc packaged by supported distributions",
		Long: `Determine the oldest version of rustc packaged by the supported
Linux and BSD distributions as of DATE (YYYY, YYYY-MM or YYYY-MM-DD, today by
default).

Examples:
  decrepit                              # oldest packaged rustc today
  decrepit -a -R 2017-04                # table of every distribution
  decrepit -a -d debian:stretch,ubuntu  # only these, debian at stretch
  decrepit -a --json --fast             # JSON, skipping slow sources`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}
			return c.runCheck(cmd.Context(), date, &opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "show the version for every distribution")
	cmd.Flags().StringArrayVarP(&opts.distros, "distro", "d", nil, "check only these distributions; name[:release][,...] (repeatable)")
	cmd.Flags().BoolVarP(&opts.fast, "fast", "f", false, "skip distributions that take more than a few seconds to check")
	cmd.Flags().BoolVarP(&opts.json, "json", "J", false, "format output as JSON")
	cmd.Flags().BoolVarP(&opts.markdown, "markdown", "M", false, "format the table for Markdown")
	cmd.Flags().BoolVarP(&opts.showRelease, "show-release", "R", false, "show the release used for each distribution")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	_ = cmd.RegisterFlagCompletionFunc("distro", c.completeDistros)

	return cmd
}

// runCheck resolves every selected distribution and prints the result.
func (c *CLI) runCheck(ctx context.Context, date string, opts *checkOpts) error {
	logger := loggerFromContext(ctx)

	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.newPlan(date, opts.distros, c.now())
	if err != nil {
		return err
	}
	logger.Debug("profile selected", "as_of", p.Date, "profile", p.Profile.Date)

	runOpts := p.options(e.cfg, opts.fast)
	var spin *spinner
	if !opts.json && isatty.IsTerminal(os.Stderr.Fd()) {
		spin = newSpinner(os.Stderr, len(runOpts.Selected()))
		observability.SetResolveHooks(spinnerHooks{s: spin})
		defer observability.SetResolveHooks(observability.NoopResolveHooks{})
		spin.Start(ctx)
	}
	prog := newProgress(logger)
	rep, err := e.runner.Execute(ctx, runOpts)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}
	logger.Debug("checked distributions", "count", len(rep.Results), "unknown", rep.Unknown(), "took", rep.Duration)

	if len(rep.Results) == 0 {
		return errNoPackages
	}
	if rep.Unknown() > 0 {
		logger.Warn("some distributions could not be checked", "count", rep.Unknown())
	}

	if !opts.all {
		_, err := fmt.Fprintln(c.Out, report.Minimum(rep))
		return err
	}
	prog.done(fmt.Sprintf("Checked %d distributions", len(rep.Results)))
	return report.Write(c.Out, opts.format(), rep.Results, opts.showRelease)
}
