package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/report"
)

// listCommand creates the "list" command, which prints the distributions and
// releases a check would use.
func (c *CLI) listCommand() *cobra.Command {
	var distros []string

	cmd := &cobra.Command{
		Use:   "list [DATE]",
		Short: "List known distributions and the releases checked as of DATE",
		Long: `List the distributions of the release profile in effect as of DATE, each
with the release that would be checked. Rolling distributions are shown
without a release. --distro overrides are applied.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}
			return c.runList(cmd.Context(), date, distros)
		},
	}

	cmd.Flags().StringArrayVarP(&distros, "distro", "d", nil, "override releases; name:release[,...] (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("distro", c.completeDistros)

	return cmd
}

func (c *CLI) runList(ctx context.Context, date string, distros []string) error {
	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.newPlan(date, distros, c.now())
	if err != nil {
		return err
	}
	loggerFromContext(ctx).Debug("known distros", "profile", p.Profile.Date, "count", len(p.Releases))
	_, err = fmt.Fprintln(c.Out, report.List(p.Releases))
	return err
}
