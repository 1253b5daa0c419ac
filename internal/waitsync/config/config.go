// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads runtime settings for the waitsync tools from flags,
// environment variables and .env files.
//
// Precedence, highest first: command-line flags, WAITSYNC_* environment
// variables (dashes in keys become underscores), .env.local, .env, and the
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kolkov/waitsync/internal/waitsync/logging"
	"github.com/kolkov/waitsync/internal/waitsync/park"
)

// EnvPrefix is prepended to every key when reading the environment.
const EnvPrefix = "waitsync"

// Keys understood by Load.
const (
	KeyParkTimeout      = "park-timeout"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyLogFile          = "log-file"
	KeyStressGoroutines = "stress-goroutines"
	KeyStressIterations = "stress-iterations"
	KeyOutput           = "output"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the resolved configuration.
type Config struct {
	ParkTimeout      time.Duration `yaml:"park_timeout"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
	LogFile          string        `yaml:"log_file,omitempty"`
	StressGoroutines int           `yaml:"stress_goroutines"`
	StressIterations int           `yaml:"stress_iterations"`
	Output           string        `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ParkTimeout:      0,
		LogLevel:         "warn",
		LogFormat:        "text",
		StressGoroutines: 8,
		StressIterations: 10000,
		Output:           "text",
	}
}

// LoadEnvFiles loads .env.local and .env from the working directory.
// Missing files are ignored. godotenv.Load never overwrites a variable that
// is already set, so the environment wins over .env.local, which wins over
// .env.
func LoadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

// AddFlags registers one flag per key on fs with the default values.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Duration(KeyParkTimeout, d.ParkTimeout, "bound on a single park; 0 waits until signalled")
	fs.String(KeyLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(KeyLogFormat, d.LogFormat, "log format (text, json)")
	fs.String(KeyLogFile, d.LogFile, "log file path; empty logs to stderr")
	fs.Int(KeyStressGoroutines, d.StressGoroutines, "goroutines per stress run")
	fs.Int(KeyStressIterations, d.StressIterations, "operations per goroutine in a stress run")
	fs.StringP(KeyOutput, "o", d.Output, "report format (text, yaml)")
}

// New returns a viper instance reading the WAITSYNC_* environment with the
// defaults installed. If fs is non-nil its flags are bound as well.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault(KeyParkTimeout, d.ParkTimeout)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyStressGoroutines, d.StressGoroutines)
	v.SetDefault(KeyStressIterations, d.StressIterations)
	v.SetDefault(KeyOutput, d.Output)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		ParkTimeout:      v.GetDuration(KeyParkTimeout),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
		LogFile:          v.GetString(KeyLogFile),
		StressGoroutines: v.GetInt(KeyStressGoroutines),
		StressIterations: v.GetInt(KeyStressIterations),
		Output:           v.GetString(KeyOutput),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.ParkTimeout < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalid, KeyParkTimeout, c.ParkTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, KeyLogLevel, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %s must be text or json, got %q", ErrInvalid, KeyLogFormat, c.LogFormat)
	}
	if c.StressGoroutines <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeyStressGoroutines, c.StressGoroutines)
	}
	if c.StressIterations <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeyStressIterations, c.StressIterations)
	}
	switch c.Output {
	case "text", "yaml":
	default:
		return fmt.Errorf("%w: %s must be text or yaml, got %q", ErrInvalid, KeyOutput, c.Output)
	}
	return nil
}

// Logging converts c into a logger configuration.
func (c Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.Config{
		Level:      level,
		OutputPath: c.LogFile,
		Format:     strings.ToLower(c.LogFormat),
	}
}

// Park converts c into options for a park table.
func (c Config) Park() park.Options {
	opts := park.DefaultOptions()
	opts.ParkTimeout = c.ParkTimeout
	return opts
}

// FromEnv loads .env files and returns the configuration from the
// environment alone. It is used where no flag set exists.
func FromEnv() (Config, error) {
	LoadEnvFiles()
	v, err := New(nil)
	if err != nil {
		return Config{}, err
	}
	return Load(v)
}
