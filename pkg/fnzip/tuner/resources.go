// Package tuner sizes fnzip's worker pools from the host's resources. It
// detects CPU cores and the open-file limit, then derives how many files
// may be walked and archived concurrently.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// OpenFileLimit is the soft limit on open file descriptors.
	OpenFileLimit uint64
}
