// Package cli implements the decrepit command-line interface.
//
// The root command answers the question decrepit exists for: what is the
// oldest rustc that the supported distributions package as of a date? It
// can also print the per-distribution table, list the release profile in
// effect, manage the download cache and serve the same answers over HTTP.
//
// # Commands
//
//   - decrepit [DATE]: check versions (the default action)
//   - list: print the distributions and releases a check would use
//   - cache: inspect or clear the download cache
//   - serve: expose checks as a read-only JSON API
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// traces every HTTP request and cache access. Loggers are passed through
// context.Context.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/buildinfo"
	"github.com/matzehuels/decrepit/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "decrepit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitNoPackages  = 2
	ExitInterrupted = 130
)

// errNoPackages is returned when a check selected no distribution at all.
var errNoPackages = stderrors.New("no packages found!")

// ExitCode maps an error returned by the root command to a process exit
// code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case stderrors.Is(err, errNoPackages):
		return ExitNoPackages
	default:
		return ExitError
	}
}

// ErrorMessage renders err for the terminal: structured errors lose their
// code prefix but keep their causes.
func ErrorMessage(err error) string {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + ErrorMessage(e.Cause)
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Diagnostics go to the logger.
	Out io.Writer

	// now is the clock used for the default as-of date.
	now func() time.Time

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		now:    time.Now,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := c.checkCommand()
	root.Version = buildinfo.Version
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if c.Logger.GetLevel() <= log.DebugLevel {
			installTraceHooks(c.Logger)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/decrepit/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "do not read or write the download cache")

	root.AddCommand(c.listCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}
