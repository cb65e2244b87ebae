// Package config loads and validates edgefuzz's run configuration:
// cobra flags, optionally defaulted from a YAML config file and a .env
// file, as external collaborators to the fuzzing engine itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend selects which co-process protocol drives target executions.
type Backend string

const (
	// BackendQEMU drives a fork-server-patched QEMU user-mode runner.
	BackendQEMU Backend = "qemu"
	// BackendValgrind drives Valgrind's lackey superblock tracer.
	BackendValgrind Backend = "valgrind"
)

// Config is the fully resolved set of values the CLI's fuzz command
// passes to the engine and backend constructors.
type Config struct {
	Target       string  `mapstructure:"target"`
	Backend      Backend `mapstructure:"backend"`
	RunnerPath   string  `mapstructure:"runner_path"`
	SeedDir      string  `mapstructure:"seeds"`
	OutputDir    string  `mapstructure:"output"`
	Timeout      int     `mapstructure:"timeout"`
	Verbose      bool    `mapstructure:"verbose"`
	StatInterval int     `mapstructure:"stat_interval"`
	// LogFile, when set, is the directory logger.InitWithFile mirrors a
	// timestamped log file into, in addition to stdout.
	LogFile string `mapstructure:"log_file"`
}

// Validate enforces the invariants the CLI layer cannot express with
// flag parsing alone: exactly one backend must be selected, and the
// paths required to start a run must be set.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target executable is required")
	}
	if c.SeedDir == "" {
		return fmt.Errorf("seed directory is required")
	}
	switch c.Backend {
	case BackendQEMU, BackendValgrind:
	case "":
		return fmt.Errorf("exactly one of --qemu or --valgrind must be selected")
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.StatInterval <= 0 {
		c.StatInterval = 1
	}
	return nil
}

// LoadDefaults reads an optional YAML config file (edgefuzz.yaml) from
// the working directory and returns the values it sets, to be used as
// defaults before CLI flags override them. A missing file is not an
// error.
func LoadDefaults() (*Config, error) {
	v := viper.New()
	v.SetConfigName("edgefuzz")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("read edgefuzz.yaml: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse edgefuzz.yaml: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads environment variable overrides (e.g. AFL_QEMU_DEBUG,
// sysroot paths) from a .env file in dir, if present. Existing
// environment variables are never overwritten.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
