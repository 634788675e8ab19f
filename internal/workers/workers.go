package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the decode
// concurrency regardless of CPU count.
const OverrideEnv = "DECODE_WORKERS"

// Count returns a worker count for a task class. It scales GOMAXPROCS,
// which follows container CPU limits, by multiplier and caps the result at
// limit (0 for no cap). DECODE_WORKERS, when set to a positive integer,
// replaces the computed value but is still capped.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			return capAt(n, limit)
		}
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	return capAt(n, limit)
}

func capAt(n, limit int) int {
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
