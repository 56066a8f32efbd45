//go:build !linux && !darwin

package render

import "math"

// diskFree has no portable implementation here; report unlimited space so
// the scratch check never blocks a render on unsupported platforms.
func diskFree(string) (uint64, error) {
	return math.MaxUint64, nil
}
