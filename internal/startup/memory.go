package startup

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/fortemezzo/cbird/internal/logging"
)

// DefaultMemoryRatio is the share of CBIRD_MEMORY_LIMIT given to the Go heap.
// The rest is left for image decoding buffers and cgo sqlite.
const DefaultMemoryRatio = 0.85

// MemoryConfig reports how the Go memory limit was configured.
type MemoryConfig struct {
	Configured bool
	// Source is "GOMEMLIMIT", "CBIRD_MEMORY_LIMIT" or "none".
	Source     string
	Limit      uint64
	GoMemLimit int64
	Ratio      float64
}

// ConfigureMemory sets the Go memory limit from the environment. Indexing a
// large library decodes many images at once, so a soft limit keeps the
// process inside its container.
//
//   - GOMEMLIMIT: honoured as is
//   - CBIRD_MEMORY_LIMIT: total budget, e.g. "4GiB" or a byte count
//   - CBIRD_MEMORY_RATIO: share of the budget for the heap (default 0.85)
func ConfigureMemory() MemoryConfig {
	result := MemoryConfig{Source: "none"}

	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		logging.Debug("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	limitStr := os.Getenv("CBIRD_MEMORY_LIMIT")
	if limitStr == "" {
		return result
	}
	limit, err := humanize.ParseBytes(limitStr)
	if err != nil || limit == 0 || limit > math.MaxInt64 {
		logging.Warn("Failed to parse CBIRD_MEMORY_LIMIT %q: %v", limitStr, err)
		return result
	}

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("CBIRD_MEMORY_RATIO"); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse CBIRD_MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("CBIRD_MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = "CBIRD_MEMORY_LIMIT"
	result.Limit = limit
	result.Ratio = ratio
	result.GoMemLimit = goMemLimit

	logging.Debug("Configured GOMEMLIMIT: %s (%.1f%% of %s)",
		humanize.IBytes(uint64(goMemLimit)), ratio*100, humanize.IBytes(limit))
	return result
}
