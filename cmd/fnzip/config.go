package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage fnzip configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/fnzip/config.yaml (if set)
  2. ~/.config/fnzip/config.yaml

Environment variables can override config file settings using the FNZIP_ prefix:
  FNZIP_WORKERS=8
  FNZIP_COMPRESSION_LEVEL=9
  FNZIP_MANIFEST_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// envOverrides lists the environment variables shown by config show.
var envOverrides = []string{
	"FNZIP_EXCLUDE_DIRS",
	"FNZIP_EXCLUDE",
	"FNZIP_EXCLUDED_MODULES",
	"FNZIP_WORKERS",
	"FNZIP_COMPRESSION_LEVEL",
	"FNZIP_OUTPUT",
	"FNZIP_CACHE_ENABLED",
	"FNZIP_CACHE_PATH",
	"FNZIP_MANIFEST_ENABLED",
	"FNZIP_MANIFEST_PATH",
	"FNZIP_MANIFEST_RETENTION_DAYS",
	"FNZIP_WATCH_DEBOUNCE",
	"FNZIP_LOGGING_LEVEL",
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Show config file being used
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Fprintf(out, "Config file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
		}
	} else {
		fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
	}

	printConfig(out, cfg)

	// Show any environment overrides
	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	anyOverrides := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "exclude_dirs:         %v\n", cfg.ExcludeDirs)
	fmt.Fprintf(w, "exclude:              %v\n", cfg.Exclude)
	fmt.Fprintf(w, "excluded_modules:     %v\n", cfg.ExcludedModules)
	fmt.Fprintf(w, "workers:              %d\n", cfg.Workers)
	fmt.Fprintf(w, "compression_level:    %d\n", cfg.CompressionLevel)
	fmt.Fprintf(w, "output:               %s\n", cfg.Output)
	fmt.Fprintf(w, "cache.enabled:        %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "cache.path:           %s\n", cfg.Cache.Path)
	fmt.Fprintf(w, "manifest.enabled:     %t\n", cfg.Manifest.Enabled)
	fmt.Fprintf(w, "manifest.path:        %s\n", cfg.Manifest.Path)
	fmt.Fprintf(w, "manifest.retention:   %d days\n", cfg.Manifest.RetentionDays)
	fmt.Fprintf(w, "watch.debounce:       %s\n", cfg.Watch.Debounce)
	fmt.Fprintf(w, "logging.level:        %s\n", cfg.Logging.Level)
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'fnzip config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	// Show if file exists
	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
