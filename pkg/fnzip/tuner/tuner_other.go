//go:build !unix

package tuner

import (
	"runtime"
)

// Detect detects available CPU cores. The open-file limit is reported as
// unknown on platforms without getrlimit.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores: runtime.NumCPU(),
	}, nil
}
