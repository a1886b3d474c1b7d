package environment

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/miniBill/elm-dedup-project/internal/compilers"
)

// Config collects everything the engine needs that is tunable from outside:
// pool size, per-run timeout and the compiler variant set.
type Config struct {
	Concurrency int           `toml:"concurrency"`
	TimeoutSec  int           `toml:"timeout_seconds"`
	Compilers   compilers.Set `toml:"compilers"`
}

const (
	DefaultConcurrency = 10
	DefaultTimeoutSec  = 120
)

// Read builds the effective configuration. Precedence, lowest first:
// built-in defaults, the optional TOML file, environment variables.
// A .env file is loaded when present; its absence is not an error.
func Read(tomlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Concurrency: DefaultConcurrency,
		TimeoutSec:  DefaultTimeoutSec,
		Compilers:   compilers.Default(),
	}

	if tomlPath != "" {
		data, err := os.ReadFile(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Compilers.ApplyEnv()

	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.TimeoutSec < 1 {
		return nil, fmt.Errorf("timeout_seconds must be positive, got %d", cfg.TimeoutSec)
	}
	return cfg, nil
}

// Timeout returns the per-run wall clock limit.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
