package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/distros"
	"github.com/matzehuels/decrepit/pkg/integrations"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for decrepit.

Bash:
  $ source <(decrepit completion bash)

Zsh:
  $ decrepit completion zsh > "${fpath[1]}/_decrepit"

Fish:
  $ decrepit completion fish > ~/.config/fish/completions/decrepit.fish

PowerShell:
  PS> decrepit completion powershell | Out-String | Invoke-Expression

Completions include the distribution names accepted by --distro, including
sources added in the config file.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(c.Out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.Out)
			case "fish":
				return cmd.Root().GenFishCompletion(c.Out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.Out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// completeDistros completes the last name of a --distro value. Earlier
// entries of a comma separated value are kept as a prefix.
func (c *CLI) completeDistros(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names, err := c.distroNames()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, prefix+name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// distroNames returns every source name known to a check, without touching
// the network or the cache.
func (c *CLI) distroNames() ([]string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	client := integrations.NewClient(cfg.Timeout, integrations.DefaultHeaders())
	builtin, err := distros.Table(client, cache.NewNullCache(), c.Logger)
	if err != nil {
		return nil, err
	}
	table, err := builtin.With(cfg.Definitions())
	if err != nil {
		return nil, err
	}
	return table.Names(), nil
}
