package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	os.Unsetenv("RENDER_THREADS")
	defer os.Unsetenv("RENDER_THREADS")

	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		maxExpect  int
	}{
		{"CPU-bound (1.0x)", 1.0, 0, available},
		{"I/O-bound (2.0x)", 2.0, 0, available * 2},
		{"limit below calculated", 2.0, 2, 2},
		{"very low multiplier clamps to 1", 0.01, 0, available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, want >= 1", tt.multiplier, tt.limit, got)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int // -1 means "fall back to calculation, just check >= 1"
	}{
		{"valid override", "8", 0, 8},
		{"override capped by limit", "20", 10, 10},
		{"override below limit", "5", 10, 5},
		{"non-numeric override ignored", "invalid", 0, -1},
		{"zero override ignored", "0", 0, -1},
		{"negative override ignored", "-5", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("RENDER_THREADS", tt.envValue)
			defer os.Unsetenv("RENDER_THREADS")

			got := Count(1.0, tt.limit)
			if tt.expected == -1 {
				if got < 1 {
					t.Errorf("Count with invalid override = %d, want >= 1", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with RENDER_THREADS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForCPUAndForIO(t *testing.T) {
	os.Unsetenv("RENDER_THREADS")
	defer os.Unsetenv("RENDER_THREADS")

	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if got := ForCPU(0); got < 1 || got > runtime.GOMAXPROCS(0) {
		t.Errorf("ForCPU(0) = %d, out of range", got)
	}
	if got := ForIO(4); got < 1 || got > 4 {
		t.Errorf("ForIO(4) = %d, out of range", got)
	}
}
