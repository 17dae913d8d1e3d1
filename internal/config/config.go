// Package config loads arena settings from defaults, a YAML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/samdwyer/espritarena/internal/combat"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "ARENA_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all runtime settings for the arena.
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Engine
	MaxTurns         int     `yaml:"max_turns" env:"MAX_TURNS"`
	DefenseCoeff     float64 `yaml:"defense_coeff" env:"DEFENSE_COEFF"`
	ElementAdvantage float64 `yaml:"element_advantage" env:"ELEMENT_ADVANTAGE"`
	CounterPenalty   float64 `yaml:"counter_penalty" env:"COUNTER_PENALTY"`
	// TablesDir overrides the embedded tables when set.
	TablesDir string `yaml:"tables_dir" env:"TABLES_DIR"`
	// Split is the stage split used for rosters without their own: fixed or element.
	Split string `yaml:"split" env:"SPLIT"`

	// Runner
	Workers int `yaml:"workers" env:"WORKERS"`

	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// DatabaseConfig holds the result store connection. An empty DSN disables
// persistence.
type DatabaseConfig struct {
	DSN     string `yaml:"dsn" env:"DSN"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// Default returns Config with sensible defaults.
func Default() Config {
	calc := combat.Default()
	return Config{
		LogLevel:         "info",
		MaxTurns:         50,
		DefenseCoeff:     calc.DefenseCoeff,
		ElementAdvantage: calc.Advantage,
		CounterPenalty:   calc.CounterPenalty,
		Split:            "fixed",
		Workers:          4,
		Database:         DatabaseConfig{Migrate: true},
	}
}

// Load reads path over the defaults, then applies ARENA_* environment
// variables. A missing file keeps the defaults.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load takes an explicit environment for tests; nil means the process environment.
func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges that would otherwise fail deep inside the engine.
func (c Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("%w: max_turns %d", ErrInvalidConfig, c.MaxTurns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	if err := c.Calculator().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Split {
	case "fixed", "element":
	default:
		return fmt.Errorf("%w: split %q", ErrInvalidConfig, c.Split)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
}

// Calculator returns the damage coefficients.
func (c Config) Calculator() combat.Calculator {
	return combat.Calculator{
		DefenseCoeff:   c.DefenseCoeff,
		Advantage:      c.ElementAdvantage,
		CounterPenalty: c.CounterPenalty,
	}
}
