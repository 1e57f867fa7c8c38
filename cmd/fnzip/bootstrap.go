package main

import (
	"fmt"

	"github.com/jamesainslie/fnzip/pkg/fnzip/config"
	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
	"github.com/spf13/cobra"
)

// initializeLogging creates the XDG directories and starts the logging
// system. It runs as the root command's PersistentPreRunE hook.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if err := config.EnsureDir(dir); err != nil {
			return err
		}
	}

	opts, err := loggingOptions(cfg, getVerbose(), getQuiet())
	if err != nil {
		return err
	}

	if err := logging.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// loggingOptions maps the logging section onto logging.Config. Warnings
// reach the console unless quiet is set; verbose mirrors debug output.
func loggingOptions(cfg *config.Config, verbose, quiet bool) (logging.Config, error) {
	opts, err := cfg.LoggingOptions()
	if err != nil {
		return logging.Config{}, err
	}

	switch {
	case quiet:
		opts.ConsoleLevel = ""
	case verbose:
		opts.Level = "debug"
		opts.ConsoleLevel = "debug"
	default:
		opts.ConsoleLevel = "warn"
	}
	return opts, nil
}
