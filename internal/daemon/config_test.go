package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8420 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8420)
	}
	if !cfg.API.MetricsEnabled {
		t.Error("API.MetricsEnabled should be true by default")
	}
	if cfg.Redemption.MaxAttempts != 3 {
		t.Errorf("Redemption.MaxAttempts = %d, want 3", cfg.Redemption.MaxAttempts)
	}
	if cfg.Streak.Timezone != "America/Bogota" {
		t.Errorf("Streak.Timezone = %q, want America/Bogota", cfg.Streak.Timezone)
	}
	if got := cfg.RefreshInterval(); got != 5*time.Minute {
		t.Errorf("RefreshInterval() = %s, want 5m", got)
	}
	if got := cfg.BaseBackoff(); got != 25*time.Millisecond {
		t.Errorf("BaseBackoff() = %s, want 25ms", got)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RODADA_HOME", home)

	content := `
[api]
host = "0.0.0.0"
port = 9000

[leaderboard]
refresh_interval = "30s"

[streak]
timezone = "UTC"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v", cfg.API)
	}
	if got := cfg.RefreshInterval(); got != 30*time.Second {
		t.Errorf("RefreshInterval() = %s, want 30s", got)
	}
	// Unset sections keep defaults.
	if cfg.Redemption.MaxAttempts != 3 {
		t.Errorf("Redemption.MaxAttempts = %d, want default 3", cfg.Redemption.MaxAttempts)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("RODADA_HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfig_BrokenFileFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RODADA_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("api = {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Error("broken config should fail loudly, not fall back to defaults")
	}
}

func TestConfig_BadDurationsFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Leaderboard.RefreshInterval = "soon"
	cfg.Redemption.BaseBackoff = "-1s"

	if got := cfg.RefreshInterval(); got != 5*time.Minute {
		t.Errorf("RefreshInterval() = %s, want 5m fallback", got)
	}
	if got := cfg.BaseBackoff(); got != 25*time.Millisecond {
		t.Errorf("BaseBackoff() = %s, want 25ms fallback", got)
	}
}

func TestConfig_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Streak.Timezone = "Marte/Olympus"
	if cfg.Location() != time.UTC {
		t.Error("unknown timezone should fall back to UTC")
	}
}
