// Package config handles configuration loading for quantbench.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Solver  SolverConfig  `mapstructure:"solver"  yaml:"solver"`
	Lattice LatticeConfig `mapstructure:"lattice" yaml:"lattice"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SolverConfig holds yield solver defaults.
type SolverConfig struct {
	SeedLow       float64 `mapstructure:"seed_low"       yaml:"seed_low"`
	SeedHigh      float64 `mapstructure:"seed_high"      yaml:"seed_high"`
	Tolerance     float64 `mapstructure:"tolerance"      yaml:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations"`
}

// LatticeConfig holds lattice calibration defaults.
type LatticeConfig struct {
	States int     `mapstructure:"states" yaml:"states"`
	Method string  `mapstructure:"method" yaml:"method"` // "quantile" or "equal-width"
	Dt     float64 `mapstructure:"dt"     yaml:"dt"`
}

// DataConfig holds price-archive fetcher settings.
type DataConfig struct {
	HistoryURL      string `mapstructure:"history_url"       yaml:"history_url"`
	CacheTTLSec     int    `mapstructure:"cache_ttl_sec"     yaml:"cache_ttl_sec"`
	RequestsPerSec  int    `mapstructure:"requests_per_sec"  yaml:"requests_per_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.quantbench/config.yaml (home directory)
//  3. /etc/quantbench/config.yaml (system)
//
// Environment variables override config file values.
// Format: QUANTBENCH_<SECTION>_<KEY>, e.g., QUANTBENCH_SOLVER_TOLERANCE
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".quantbench"))
	v.AddConfigPath("/etc/quantbench")

	v.SetEnvPrefix("QUANTBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solver.seed_low", 0.01)
	v.SetDefault("solver.seed_high", 0.10)
	v.SetDefault("solver.tolerance", 1e-6)
	v.SetDefault("solver.max_iterations", 100)

	v.SetDefault("lattice.states", 3)
	v.SetDefault("lattice.method", "quantile")
	v.SetDefault("lattice.dt", 1.0)

	v.SetDefault("data.history_url", "")
	v.SetDefault("data.cache_ttl_sec", 1800)
	v.SetDefault("data.requests_per_sec", 2)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
