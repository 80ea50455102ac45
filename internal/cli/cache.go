package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/decrepit/pkg/cache"
	"github.com/matzehuels/decrepit/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download cache",
		Long: `Manage the cache of large downloads. Cached payloads are revalidated with
their ETag on every check, so clearing the cache is only needed to reclaim
space or to recover from a broken backend.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheClear(cmd.Context())
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := newCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	printSuccess("Cleared cache")
	if fc, ok := store.(*cache.FileCache); ok {
		printDetail("Directory: %s", fc.Dir())
	} else {
		printDetail("Backend: %s", cfg.CacheBackend)
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.CacheBackend != config.BackendFile {
				return fmt.Errorf("cache backend is %q, not a directory", cfg.CacheBackend)
			}
			_, err = fmt.Fprintln(c.Out, cfg.CacheDir)
			return err
		},
	}
}
