package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "INDEX_THREADS"

// Count returns the number of workers for a task with the given
// CPU multiplier, capped at limit (0 means no cap). GOMAXPROCS is used so
// cgroup CPU limits are honored.
//
// INDEX_THREADS overrides the computed value.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capped(count, limit)
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)
	if workers < 1 {
		workers = 1
	}

	return capped(workers, limit)
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve returns requested when it is positive, otherwise the CPU-bound
// default. Used for user supplied thread counts where 0 means automatic.
func Resolve(requested int) int {
	if requested > 0 {
		return requested
	}
	return ForCPU(0)
}
