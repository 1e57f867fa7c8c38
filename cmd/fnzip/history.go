package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/jamesainslie/fnzip/pkg/fnzip/manifest"
	"github.com/jamesainslie/fnzip/pkg/fnzip/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View packaging history",
	Long: `View the history of packaging operations.

The manifest stores a record of every archive fnzip produced, including
the checksum of the archive and of each file it contains.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific operation",
	Long:  `Display detailed information about a specific operation by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest instance with the configured directory.
func getManifest() (*manifest.Manifest, error) {
	cfg, err := loadConfig()
	if err != nil {
		// Use default manifest path if config fails to load
		return manifest.New(config.DefaultManifestPath())
	}

	return manifest.New(cfg.Manifest.Path)
}

// runHistory lists recent operations.
func runHistory(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'fnzip zip <source>' to package a function.")
		return nil
	}

	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(w io.Writer, entries []manifest.Entry) {
	fmt.Fprintf(w, "\n%-46s  %-6s  %-10s  %s\n", "ID", "FILES", "SIZE", "ARCHIVE")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, entry := range entries {
		fmt.Fprintf(w, "%-46s  %-6d  %-10s  %s\n",
			truncateString(entry.ID, 46),
			entry.Summary.TotalFiles,
			types.FormatSize(entry.Archive.Size),
			entry.Archive.Path,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 100))
	fmt.Fprintf(w, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(w, "Use 'fnzip history show <id>' for details on a specific entry.")
}

// runHistoryShow displays details of a specific operation.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entry, err := m.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	printEntry(cmd.OutOrStdout(), entry)
	return nil
}

func printEntry(w io.Writer, entry *manifest.Entry) {
	fmt.Fprintln(w, "\nOperation Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:           %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:    %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:    %s\n", entry.Operation)
	fmt.Fprintf(w, "Source:       %s\n", entry.Function.Source)
	if entry.Function.Handler != "" {
		fmt.Fprintf(w, "Handler:      %s\n", entry.Function.Handler)
	}
	fmt.Fprintf(w, "Handler file: %s\n", entry.Function.HandlerFile)
	fmt.Fprintf(w, "Package root: %s\n", entry.Function.PackageRoot)
	fmt.Fprintf(w, "Archive:      %s (%s)\n", entry.Archive.Path, types.FormatSize(entry.Archive.Size))
	fmt.Fprintf(w, "SHA-256:      %s\n", entry.Archive.SHA256)
	fmt.Fprintf(w, "Files:        %d\n", entry.Summary.TotalFiles)
	fmt.Fprintf(w, "Total Size:   %s\n", types.FormatSize(entry.Summary.TotalBytes))

	if len(entry.Files) == 0 {
		return
	}

	fmt.Fprintln(w, "\nFiles:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-12s  %s\n", "SIZE", "NAME")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	// Limit display to 50 files
	limit := min(len(entry.Files), 50)
	for _, file := range entry.Files[:limit] {
		fmt.Fprintf(w, "%-12s  %s\n", types.FormatSize(file.Size), file.Name)
	}

	if len(entry.Files) > limit {
		fmt.Fprintf(w, "\n... and %d more files\n", len(entry.Files)-limit)
	}
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete: %d entries removed.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
