package startup

import (
	"os"
	"testing"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS/Arch to be set, got %q/%q", info.OS, info.Arch)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Empty value falls back to default",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
		setEnv       bool
	}{
		{name: "unset uses default", defaultValue: true, want: true},
		{name: "true", envValue: "true", setEnv: true, want: true},
		{name: "false", envValue: "false", defaultValue: true, setEnv: true, want: false},
		{name: "numeric one", envValue: "1", setEnv: true, want: true},
		{name: "garbage uses default", envValue: "maybe", defaultValue: true, setEnv: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			if got := getEnvBool(key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvUint(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue uint64
		want         uint64
		setEnv       bool
	}{
		{name: "unset uses default", defaultValue: 15, want: 15},
		{name: "valid value", envValue: "25", defaultValue: 15, setEnv: true, want: 25},
		{name: "zero is accepted", envValue: "0", defaultValue: 15, setEnv: true, want: 0},
		{name: "negative uses default", envValue: "-3", defaultValue: 15, setEnv: true, want: 15},
		{name: "garbage uses default", envValue: "lots", defaultValue: 15, setEnv: true, want: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_UINT_VAR"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			if got := getEnvUint(key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvUint(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	// Existing directory passes.
	if err := ensureDirectory(dir, "data"); err != nil {
		t.Errorf("existing dir: %v", err)
	}

	// Missing directory is created.
	sub := dir + "/nested/created"
	if err := ensureDirectory(sub, "data"); err != nil {
		t.Errorf("missing dir: %v", err)
	}
	if info, err := os.Stat(sub); err != nil || !info.IsDir() {
		t.Errorf("directory was not created: %v", err)
	}

	// A file where a directory should be is an error.
	file := dir + "/plainfile"
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "data"); err == nil {
		t.Error("expected error for non-directory path")
	}
}
