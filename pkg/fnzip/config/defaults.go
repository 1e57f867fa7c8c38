// Package config provides configuration management for fnzip.
package config

import "github.com/jamesainslie/fnzip/pkg/fnzip/archive"

// Default configuration values for fnzip.
const (
	// AppName names the XDG directories and the environment prefix.
	AppName = "fnzip"

	// EnvPrefix prefixes environment variable overrides (FNZIP_WORKERS).
	EnvPrefix = "FNZIP"

	// DefaultOutput is the default output format.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is the default number of days to retain history.
	DefaultRetentionDays = 30

	// DefaultWorkers selects automatic tuning.
	DefaultWorkers = 0

	// DefaultCompressionLevel selects the deflate default.
	DefaultCompressionLevel = archive.DefaultLevel

	// DefaultDebounce is the watch mode quiet period.
	DefaultDebounce = "300ms"
)

// DefaultExcludeDirs are pruned from source tree walks.
var DefaultExcludeDirs = []string{"node_modules"}

// DefaultExcludedModules are provided by the function runtime.
var DefaultExcludedModules = []string{"aws-sdk"}

// DefaultComponentLevels are the per-component log levels.
var DefaultComponentLevels = map[string]string{
	"zipper":   "info",
	"selector": "info",
	"resolver": "info",
	"archive":  "info",
	"cache":    "info",
	"watcher":  "warn",
}
