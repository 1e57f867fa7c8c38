//go:build unix

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects CPU cores with runtime.NumCPU and the open-file limit with
// getrlimit(RLIMIT_NOFILE).
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return resources, fmt.Errorf("getrlimit RLIMIT_NOFILE: %w", err)
	}
	resources.OpenFileLimit = uint64(rlim.Cur)

	return resources, nil
}
