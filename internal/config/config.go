// Package config loads luadispatch configuration from TOML files and
// environment variables. File settings load first; LUADISPATCH_-prefixed
// environment variables override them. A missing file is not an error,
// the defaults apply.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// envPrefix is the environment variable prefix, including the underscore.
const envPrefix = "LUADISPATCH_"

// DefaultDelay is the producer poll interval used when none is configured.
const DefaultDelay = 15 * time.Millisecond

// Config is the complete luadispatch configuration.
type Config struct {
	Async Async `toml:"async"`
	Log   Log   `toml:"log"`
}

// Async configures the dispatch engine.
type Async struct {
	// Delay is the interval between producer poll steps, as a Go duration
	// string (e.g. "15ms").
	Delay string `toml:"delay"`

	// Disabled suppresses all producer registration, for embedding
	// contexts that forbid background goroutines.
	Disabled bool `toml:"disabled"`
}

// Log configures diagnostics.
type Log struct {
	// Level is a zerolog level name: debug, info, warn, error, or off.
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Async: Async{Delay: DefaultDelay.String()},
		Log:   Log{Level: "info"},
	}
}

// DelayDuration parses the configured poll delay.
func (a Async) DelayDuration() (time.Duration, error) {
	if a.Delay == "" {
		return DefaultDelay, nil
	}
	d, err := time.ParseDuration(a.Delay)
	if err != nil {
		return 0, fmt.Errorf("parsing async delay %q: %w", a.Delay, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("async delay %q must be positive", a.Delay)
	}
	return d, nil
}

// FileSystem abstracts file reads so tests can supply in-memory files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Load reads configuration from path, then applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	return LoadWithFS(OSFS{}, path)
}

// LoadWithFS is Load with a custom file system.
func LoadWithFS(fs FileSystem, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := fs.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Not an error; defaults apply.
		case err != nil:
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	// Validate eagerly so a bad delay fails at load, not at first use.
	if _, err := cfg.Async.DelayDuration(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays LUADISPATCH_ environment variables onto cfg.
// Empty string values count as set.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(envPrefix + "ASYNC_DELAY"); ok {
		cfg.Async.Delay = v
	}
	if v, ok := os.LookupEnv(envPrefix + "ASYNC_DISABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Async.Disabled = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
}
