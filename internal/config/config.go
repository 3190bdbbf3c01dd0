// Package config loads intentd configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/intentd/internal/engine"
)

// Config is the full intentd configuration. Every field has a default;
// the config file and all environment variables are optional.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" env:"INTENTD_LISTEN"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"INTENTD_LOG_LEVEL"`

	// FailureRate is the per-stage injected failure probability, 0..1.
	FailureRate float64 `yaml:"failure_rate" env:"INTENTD_FAILURE_RATE"`

	// StageDelays overrides per-stage delays, keyed by stage name.
	// Stages not listed keep engine defaults.
	StageDelays map[string]Duration `yaml:"stage_delays"`
}

// Duration wraps time.Duration with YAML string parsing ("300ms", "1.2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:      "127.0.0.1:8787",
		LogLevel:    "info",
		FailureRate: engine.DefaultFailureRate,
	}
}

// Load reads configuration: defaults, then the YAML file at path (if path
// is non-empty; the file must exist in that case), then environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failure_rate must be in [0, 1], got %v", c.FailureRate)
	}
	for name := range c.StageDelays {
		if !engine.State(name).Valid() {
			return fmt.Errorf("stage_delays: unknown stage %q", name)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

// EngineOptions converts the configuration into engine options.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithFailurePolicy(engine.NewRandomFailures(c.FailureRate)),
	}
	if len(c.StageDelays) > 0 {
		delays := make(map[engine.State]time.Duration, len(c.StageDelays))
		for name, d := range c.StageDelays {
			delays[engine.State(name)] = time.Duration(d)
		}
		opts = append(opts, engine.WithStageDelays(delays))
	}
	return opts
}
