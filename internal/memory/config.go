package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"clipforge/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit handed to the
	// Go heap. The remainder is headroom for the ffmpeg children and the
	// raw frame buffers moving through their pipes; a render with no
	// headroom gets its encoder OOM-killed mid-stream.
	DefaultMemoryRatio = 0.85
)

// ConfigResult reports what ConfigureFromEnv decided.
type ConfigResult struct {
	// Configured is true when a GOMEMLIMIT is in effect.
	Configured bool

	// Source names where the limit came from: "GOMEMLIMIT",
	// "MEMORY_LIMIT", or "none".
	Source string

	// ContainerLimit is the container memory limit in bytes, when known.
	ContainerLimit int64

	// GoMemLimit is the effective heap limit in bytes, when set.
	GoMemLimit int64

	// Ratio is the fraction of the container limit applied.
	Ratio float64
}

// ConfigureFromEnv derives GOMEMLIMIT from the container's memory limit.
// Meant to run first thing in main, before the process allocates in earnest.
//
// An explicit GOMEMLIMIT wins outright. Otherwise MEMORY_LIMIT (bytes, e.g.
// from the Kubernetes Downward API) is scaled by MEMORY_RATIO, defaulting
// to DefaultMemoryRatio. With neither set, nothing is configured.
func ConfigureFromEnv() ConfigResult {
	result := ConfigResult{}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT alone")
		result.Source = "none"
		return result
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", memLimitStr, err)
		result.Source = "none"
		return result
	}

	result.ContainerLimit = memLimit

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsedRatio, err := strconv.ParseFloat(ratioStr, 64); err == nil {
			if parsedRatio > 0 && parsedRatio <= 1.0 {
				ratio = parsedRatio
			} else {
				logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
			}
		} else {
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		}
	}

	result.Ratio = ratio

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = "MEMORY_LIMIT"
	result.GoMemLimit = goMemLimit

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit),
		ratio*100,
		formatBytes(memLimit),
	)

	return result
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
