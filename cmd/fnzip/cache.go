package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/fnzip/pkg/fnzip/cache"
	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the dependency resolution cache",
	Long: `Commands for managing the fnzip dependency resolution cache.

The cache remembers which files each handler requires, keyed by package
root and handler file, and is invalidated when any of those files or the
package.json change. It is stored in the XDG cache directory (typically
~/.cache/fnzip/resolve).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached resolutions",
	Long:  `Removes all cached resolutions. The next package run resolves every dependency again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cachePath := getCachePath()

		// Check if cache exists
		if _, err := os.Stat(cachePath); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is already empty.")
			return nil
		}

		store, err := cache.OpenStore(cachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}

		clearErr := store.Clear()
		if err := errors.Join(clearErr, store.Close()); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location and the number of cached resolutions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cachePath := getCachePath()
		out := cmd.OutOrStdout()

		if _, err := os.Stat(cachePath); os.IsNotExist(err) {
			fmt.Fprintln(out, "Cache: empty (no cache database)")
			fmt.Fprintf(out, "Cache location: %s\n", cachePath)
			return nil
		}

		store, err := cache.OpenStore(cachePath)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() { _ = store.Close() }()

		count, err := store.Count()
		if err != nil {
			return fmt.Errorf("failed to count cache entries: %w", err)
		}

		fmt.Fprintf(out, "Cache location: %s\n", cachePath)
		fmt.Fprintf(out, "Cached resolutions: %d\n", count)
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache database directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), getCachePath())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// getCachePath returns the configured cache path, or the default when the
// configuration cannot be loaded.
func getCachePath() string {
	cfg, err := loadConfig()
	if err != nil || cfg.Cache.Path == "" {
		return config.DefaultCachePath()
	}
	return cfg.Cache.Path
}
