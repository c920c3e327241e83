package startup

import (
	"math"
	"os"
	"runtime/debug"
	"testing"
)

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
			name:         "Returns default when env var is empty",
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

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
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
	}{
		{"unset keeps default true", "", true, true},
		{"unset keeps default false", "", false, false},
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"one", "1", false, true},
		{"zero", "0", true, false},
		{"invalid keeps default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigureMemory(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		ratio      string
		configured bool
		wantLimit  int64
		wantRatio  float64
	}{
		{name: "not set", configured: false},
		{name: "bytes", limit: "1000000", configured: true, wantLimit: 850000, wantRatio: 0.85},
		{name: "human units", limit: "1GiB", configured: true, wantLimit: 912680550, wantRatio: 0.85},
		{name: "custom ratio", limit: "1000000", ratio: "0.5", configured: true, wantLimit: 500000, wantRatio: 0.5},
		{name: "ratio out of range", limit: "1000000", ratio: "1.5", configured: true, wantLimit: 850000, wantRatio: 0.85},
		{name: "ratio not a number", limit: "1000000", ratio: "half", configured: true, wantLimit: 850000, wantRatio: 0.85},
		{name: "invalid limit", limit: "lots", configured: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("CBIRD_MEMORY_LIMIT", tt.limit)
			t.Setenv("CBIRD_MEMORY_RATIO", tt.ratio)

			got := ConfigureMemory()
			if got.Configured != tt.configured {
				t.Fatalf("Configured = %v, want %v (%+v)", got.Configured, tt.configured, got)
			}
			if !tt.configured {
				if got.Source != "none" {
					t.Errorf("Source = %q, want none", got.Source)
				}
				return
			}
			if got.Source != "CBIRD_MEMORY_LIMIT" || got.GoMemLimit != tt.wantLimit || got.Ratio != tt.wantRatio {
				t.Errorf("got %+v, want limit %d ratio %v", got, tt.wantLimit, tt.wantRatio)
			}
			if applied := debug.SetMemoryLimit(-1); applied != tt.wantLimit {
				t.Errorf("runtime limit = %d, want %d", applied, tt.wantLimit)
			}
		})
	}
}

func TestConfigureMemoryGOMEMLIMIT(t *testing.T) {
	restoreMemoryLimit(t)
	debug.SetMemoryLimit(1 << 30)
	t.Setenv("GOMEMLIMIT", "1GiB")
	t.Setenv("CBIRD_MEMORY_LIMIT", "10")

	got := ConfigureMemory()
	if got.Source != "GOMEMLIMIT" || got.GoMemLimit != 1<<30 {
		t.Errorf("got %+v", got)
	}
	if limit := debug.SetMemoryLimit(-1); limit == math.MaxInt64 {
		t.Error("GOMEMLIMIT overridden")
	}
}
