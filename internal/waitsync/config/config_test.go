// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/waitsync/internal/waitsync/logging"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	v, err := New(newFlags(t))
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("WAITSYNC_STRESS_GOROUTINES", "3")
	t.Setenv("WAITSYNC_PARK_TIMEOUT", "250ms")

	v, err := New(newFlags(t, "--stress-goroutines=5"))
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.StressGoroutines)
	require.Equal(t, 250*time.Millisecond, cfg.ParkTimeout)
}

func TestEnvWithoutFlags(t *testing.T) {
	t.Setenv("WAITSYNC_LOG_LEVEL", "debug")
	t.Setenv("WAITSYNC_OUTPUT", "yaml")

	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "yaml", cfg.Output)
}

func TestEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WAITSYNC_STRESS_ITERATIONS=77\n"), 0o600))

	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("WAITSYNC_STRESS_ITERATIONS") })

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 77, cfg.StressIterations)
}

func TestEnvLocalOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("WAITSYNC_STRESS_GOROUTINES=3\nWAITSYNC_LOG_LEVEL=error\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("WAITSYNC_STRESS_GOROUTINES=12\n"), 0o600))

	t.Chdir(dir)
	t.Cleanup(func() {
		_ = os.Unsetenv("WAITSYNC_STRESS_GOROUTINES")
		_ = os.Unsetenv("WAITSYNC_LOG_LEVEL")
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 12, cfg.StressGoroutines, ".env.local must win over .env")
	require.Equal(t, "error", cfg.LogLevel, "keys only in .env still apply")
}

func TestEnvironmentOverridesEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"),
		[]byte("WAITSYNC_STRESS_ITERATIONS=5\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("WAITSYNC_STRESS_ITERATIONS", "9")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 9, cfg.StressIterations)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative park timeout", func(c *Config) { c.ParkTimeout = -time.Second }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero goroutines", func(c *Config) { c.StressGoroutines = 0 }},
		{"negative iterations", func(c *Config) { c.StressIterations = -1 }},
		{"bad output", func(c *Config) { c.Output = "csv" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestLoadRejectsInvalid(t *testing.T) {
	v, err := New(newFlags(t, "--stress-goroutines=-2"))
	require.NoError(t, err)

	_, err = Load(v)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.ParkTimeout = 5 * time.Millisecond
	cfg.LogLevel = "Error"
	cfg.LogFormat = "JSON"
	cfg.LogFile = "/tmp/waitsync.log"

	require.Equal(t, 5*time.Millisecond, cfg.Park().ParkTimeout)

	lc := cfg.Logging()
	require.Equal(t, logging.LevelError, lc.Level)
	require.Equal(t, "json", lc.Format)
	require.Equal(t, "/tmp/waitsync.log", lc.OutputPath)
}
