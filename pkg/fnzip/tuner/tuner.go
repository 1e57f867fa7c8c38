package tuner

// Worker configuration limits.
const (
	// maxWorkers is the maximum number of workers for any pool.
	maxWorkers = 64

	// minWalkWorkers is the minimum number of tree walk workers.
	minWalkWorkers = 4

	// minArchiveWorkers is the minimum number of archive workers.
	minArchiveWorkers = 2

	// reservedFiles are descriptors left for the archive, logs, cache and
	// the resolver, which reads files outside the archive pool.
	reservedFiles = 32

	// fdFraction is the share of the remaining descriptors the archive
	// pool may hold open at once.
	fdFraction = 0.5
)

// OptimalConfig contains tuned worker configuration.
type OptimalConfig struct {
	// WalkWorkers is the number of source tree walking workers.
	WalkWorkers int

	// ArchiveWorkers bounds concurrent stat and add operations while
	// assembling an archive. Each holds one file open.
	ArchiveWorkers int
}

// Calculate returns optimal configuration based on system resources.
//
// WalkWorkers is max(NumCPU, 4). ArchiveWorkers is NumCPU * 2, bounded by
// half of the open-file limit left after a fixed reserve. Both are capped
// at 64.
func Calculate(resources SystemResources) OptimalConfig {
	cores := max(resources.CPUCores, 1)

	walkWorkers := max(cores, minWalkWorkers)
	walkWorkers = min(walkWorkers, maxWorkers)

	archiveWorkers := cores * 2
	if limit := fdBudget(resources.OpenFileLimit); limit > 0 {
		archiveWorkers = min(archiveWorkers, limit)
	}
	archiveWorkers = max(archiveWorkers, minArchiveWorkers)
	archiveWorkers = min(archiveWorkers, maxWorkers)

	return OptimalConfig{
		WalkWorkers:    walkWorkers,
		ArchiveWorkers: archiveWorkers,
	}
}

// CalculateWithOverrides applies a user override to the optimal config.
// A positive workerOverride sets both pools, still capped at 64.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	config := Calculate(resources)

	if workerOverride > 0 {
		workers := min(workerOverride, maxWorkers)
		config.WalkWorkers = workers
		config.ArchiveWorkers = workers
	}

	return config
}

// Auto detects resources and applies workerOverride. Detection failures
// fall back to the partial resources Detect returned.
func Auto(workerOverride int) OptimalConfig {
	resources, _ := Detect()
	return CalculateWithOverrides(resources, workerOverride)
}

// fdBudget returns how many archive workers the descriptor limit allows,
// or zero when the limit is unknown.
func fdBudget(limit uint64) int {
	if limit == 0 {
		return 0
	}
	if limit <= reservedFiles {
		return 1
	}
	budget := float64(limit-reservedFiles) * fdFraction
	if budget > maxWorkers {
		return maxWorkers
	}
	return max(int(budget), 1)
}
