// Package daemon wires the engine together: config, storage, services, the
// background leaderboard refresher, and the HTTP server lifecycle.
package daemon

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from ~/.rodada/config.toml.
type Config struct {
	API         APIConfig         `toml:"api"`
	Storage     StorageConfig     `toml:"storage"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Redemption  RedemptionConfig  `toml:"redemption"`
	Streak      StreakConfig      `toml:"streak"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
}

// StorageConfig configures the sqlite store.
type StorageConfig struct {
	Dir string `toml:"dir"` // empty = <home>/data
}

// LeaderboardConfig configures the batch ranking refresher.
type LeaderboardConfig struct {
	RefreshInterval string `toml:"refresh_interval"` // Go duration, e.g. "5m"
}

// RedemptionConfig configures the redemption retry policy.
type RedemptionConfig struct {
	MaxAttempts int    `toml:"max_attempts"`
	BaseBackoff string `toml:"base_backoff"` // Go duration, e.g. "25ms"
}

// StreakConfig configures streak day boundaries.
type StreakConfig struct {
	Timezone string `toml:"timezone"` // IANA name; days roll over here
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8420,
			MetricsEnabled: true,
		},
		Storage: StorageConfig{
			Dir: "",
		},
		Leaderboard: LeaderboardConfig{
			RefreshInterval: "5m",
		},
		Redemption: RedemptionConfig{
			MaxAttempts: 3,
			BaseBackoff: "25ms",
		},
		Streak: StreakConfig{
			Timezone: "America/Bogota",
		},
	}
}

// Home returns the rodada home directory. RODADA_HOME overrides the default
// ~/.rodada.
func Home() string {
	if home := os.Getenv("RODADA_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".rodada"
	}
	return filepath.Join(userHome, ".rodada")
}

// LoadConfig reads <home>/config.toml, falling back to defaults when the
// file does not exist. A present-but-broken file is an error: silently
// running with defaults would mask a typo.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(Home(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	log.Printf("[daemon] loaded config from %s", path)
	return cfg, nil
}

// DataDir resolves the sqlite directory and creates it.
func (c Config) DataDir() (string, error) {
	dir := c.Storage.Dir
	if dir == "" {
		dir = filepath.Join(Home(), "data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// Addr returns the host:port the API binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// RefreshInterval parses the leaderboard interval with a sane floor.
func (c Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Leaderboard.RefreshInterval)
	if err != nil || d < time.Second {
		return 5 * time.Minute
	}
	return d
}

// BaseBackoff parses the redemption backoff.
func (c Config) BaseBackoff() time.Duration {
	d, err := time.ParseDuration(c.Redemption.BaseBackoff)
	if err != nil || d <= 0 {
		return 25 * time.Millisecond
	}
	return d
}

// Location resolves the streak timezone, falling back to UTC with a warning
// rather than refusing to start.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		log.Printf("[daemon] unknown timezone %q, using UTC", c.Streak.Timezone)
		return time.UTC
	}
	return loc
}
