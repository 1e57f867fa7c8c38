package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// appConfig is populated by initConfig before any command runs.
	appConfig *config.Config
	configErr error

	rootCmd = &cobra.Command{
		Use:   "fnzip",
		Short: "Package serverless functions into minimal ZIP archives",
		Long: `fnzip packages a serverless function's source tree plus the runtime
dependencies its handler actually requires into a minimal ZIP archive.

Source files are stored under src/ in the archive and an entry module at
the archive root re-exports the handler, so the function always loads from
a predictable path.

Examples:
  fnzip zip ./functions/api                   # Package a function directory
  fnzip zip ./functions/api --handler index    # Name the handler module
  fnzip zip ./handler.js -d dist/handler.zip   # Package a single file
  fnzip zip ./functions/api --watch            # Repackage on change
  fnzip history                                # View packaging history`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/fnzip/config.yaml)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override worker count (0=auto)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the dependency resolution cache")

	// Bind flags to viper
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	appConfig, configErr = config.Load(viper.GetViper(), cfgFile)
}

// loadConfig returns the configuration read by initConfig.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", configErr)
	}
	if appConfig == nil {
		initConfig()
		return loadConfig()
	}
	return appConfig, nil
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
