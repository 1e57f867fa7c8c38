package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/fnzip/pkg/fnzip/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// CacheConfig configures the dependency resolution cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ManifestConfig configures packaging history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	ExcludeDirs      []string       `mapstructure:"exclude_dirs"`
	Exclude          []string       `mapstructure:"exclude"`
	ExcludedModules  []string       `mapstructure:"excluded_modules"`
	Workers          int            `mapstructure:"workers"`
	CompressionLevel int            `mapstructure:"compression_level"`
	Output           string         `mapstructure:"output"`
	Cache            CacheConfig    `mapstructure:"cache"`
	Manifest         ManifestConfig `mapstructure:"manifest"`
	Watch            WatchConfig    `mapstructure:"watch"`
	Logging          LoggingConfig  `mapstructure:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exclude_dirs", DefaultExcludeDirs)
	v.SetDefault("exclude", []string{})
	v.SetDefault("excluded_modules", DefaultExcludedModules)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("compression_level", DefaultCompressionLevel)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means DefaultCachePath

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "") // Empty means DefaultManifestPath
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// Load reads configuration into v and returns it decoded.
//
// configFile, when set, names the file to read. Otherwise config.yaml is
// looked up in order:
//   - $XDG_CONFIG_HOME/fnzip/
//   - $HOME/.config/fnzip/
//
// A missing config file is not an error. Environment variables prefixed
// with FNZIP_ override file values (FNZIP_MANIFEST_ENABLED=false).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandPaths expands ~ and fills in default locations.
func (c *Config) expandPaths() error {
	var err error
	if c.Cache.Path, err = ExpandPath(c.Cache.Path); err != nil {
		return err
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath()
	}
	if c.Manifest.Path, err = ExpandPath(c.Manifest.Path); err != nil {
		return err
	}
	if c.Manifest.Path == "" {
		c.Manifest.Path = DefaultManifestPath()
	}
	if c.Logging.Path, err = ExpandPath(c.Logging.Path); err != nil {
		return err
	}
	return nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", c.Logging.Rotation.MaxSize, err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = c.Logging.Rotation.MaxAge
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups

	return logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Rotation:   rotation,
		Components: c.Logging.Components,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

func defaultConfigFile() string {
	return fmt.Sprintf(`# fnzip configuration

# Directory names pruned from source trees
exclude_dirs:
  - node_modules

# Glob patterns (relative to the source directory) left out of archives
exclude: []

# Modules provided by the function runtime, never bundled
excluded_modules:
  - aws-sdk

# Concurrent file operations (0 = tuned from CPU count and open-file limit)
workers: %d

# Deflate level: 1 fastest ... 9 smallest, -2 Huffman only (0 or -1 = default)
compression_level: %d

# Output format: pretty, plain, json, jsonl, yaml, paths, sources, template
output: %s

# Dependency resolution cache
cache:
  enabled: true
  # Empty means $XDG_CACHE_HOME/fnzip/resolve
  path: ""

# Packaging history
manifest:
  enabled: true
  # Empty means $XDG_DATA_HOME/fnzip/history
  path: ""
  retention_days: %d

# Watch mode
watch:
  debounce: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/fnzip/fnzip.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
  components:
    watcher: warn
`, DefaultWorkers, DefaultCompressionLevel, DefaultOutput, DefaultRetentionDays, DefaultDebounce)
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/fnzip/ for packaging history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/fnzip/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// CacheDir returns $XDG_CACHE_HOME/fnzip/ for the resolution cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultCachePath returns the default resolution cache database path.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "resolve")
}

// DefaultManifestPath returns the default packaging history directory.
func DefaultManifestPath() string {
	return filepath.Join(DataDir(), "history")
}

// EnsureDir creates dir if it doesn't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
