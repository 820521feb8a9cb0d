package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up env vars after test
	origEnv := make(map[string]string)
	envVars := []string{
		"PORT", "LOG_LEVEL", "POOL_CAPACITY", "MAX_SESSIONS_PER_BROWSER",
		"SESSION_IDLE_THRESHOLD", "REAP_INTERVAL", "CHROME_PATH",
		"DISABLE_STEALTH", "ACTION_TIMEOUT", "WAIT_CONTENT_INTERVAL",
		"WAIT_CONTENT_TIMEOUT", "CACHE_PROVIDER", "CACHE_MAX_ITEMS",
		"CACHE_TTL", "SNAPSHOT_DB_PATH", "AUTH_SECRET",
		"ALLOW_UNAUTHENTICATED", "RATE_LIMIT_RPM", "IDLE_TIMEOUT",
	}

	for _, v := range envVars {
		origEnv[v] = os.Getenv(v)
	}
	defer func() {
		for k, v := range origEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("defaults", func(t *testing.T) {
		for _, v := range envVars {
			os.Unsetenv(v)
		}

		cfg := Load()

		if cfg.Port != 8190 {
			t.Errorf("Port = %d, want 8190", cfg.Port)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
		}
		if cfg.PoolCapacity != 5 {
			t.Errorf("PoolCapacity = %d, want 5", cfg.PoolCapacity)
		}
		if cfg.MaxSessionsPerBrowser != 10 {
			t.Errorf("MaxSessionsPerBrowser = %d, want 10", cfg.MaxSessionsPerBrowser)
		}
		if cfg.SessionIdleThreshold != 180*time.Second {
			t.Errorf("SessionIdleThreshold = %v, want 180s", cfg.SessionIdleThreshold)
		}
		if cfg.ReapInterval != 0 {
			t.Errorf("ReapInterval = %v, want 0", cfg.ReapInterval)
		}
		if cfg.ActionTimeout != 60*time.Second {
			t.Errorf("ActionTimeout = %v, want 60s", cfg.ActionTimeout)
		}
		if cfg.WaitContentInterval != 500*time.Millisecond {
			t.Errorf("WaitContentInterval = %v, want 500ms", cfg.WaitContentInterval)
		}
		if cfg.WaitContentTimeout != 30*time.Second {
			t.Errorf("WaitContentTimeout = %v, want 30s", cfg.WaitContentTimeout)
		}
		if cfg.CacheProvider != "memory" {
			t.Errorf("CacheProvider = %q, want %q", cfg.CacheProvider, "memory")
		}
		if cfg.CacheMaxItems != 1024 {
			t.Errorf("CacheMaxItems = %d, want 1024", cfg.CacheMaxItems)
		}
		if cfg.CacheTTL != time.Hour {
			t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
		}
		if cfg.SnapshotDBPath != "" {
			t.Errorf("SnapshotDBPath = %q, want empty", cfg.SnapshotDBPath)
		}
		if cfg.AllowUnauthenticated != false {
			t.Errorf("AllowUnauthenticated = %v, want false", cfg.AllowUnauthenticated)
		}
		if cfg.RateLimitRPM != 0 {
			t.Errorf("RateLimitRPM = %d, want 0", cfg.RateLimitRPM)
		}
		if cfg.IdleTimeout != 0 {
			t.Errorf("IdleTimeout = %v, want 0", cfg.IdleTimeout)
		}
	})

	t.Run("from env", func(t *testing.T) {
		os.Setenv("PORT", "9000")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("POOL_CAPACITY", "3")
		os.Setenv("MAX_SESSIONS_PER_BROWSER", "2")
		os.Setenv("SESSION_IDLE_THRESHOLD", "5m")
		os.Setenv("REAP_INTERVAL", "1m")
		os.Setenv("CHROME_PATH", "/usr/bin/chromium")
		os.Setenv("DISABLE_STEALTH", "true")
		os.Setenv("ACTION_TIMEOUT", "120s")
		os.Setenv("WAIT_CONTENT_INTERVAL", "250ms")
		os.Setenv("WAIT_CONTENT_TIMEOUT", "10s")
		os.Setenv("CACHE_PROVIDER", "memory")
		os.Setenv("CACHE_MAX_ITEMS", "64")
		os.Setenv("CACHE_TTL", "15m")
		os.Setenv("SNAPSHOT_DB_PATH", "/data/snapshots.db")
		os.Setenv("AUTH_SECRET", "secret-key")
		os.Setenv("ALLOW_UNAUTHENTICATED", "true")
		os.Setenv("RATE_LIMIT_RPM", "120")
		os.Setenv("IDLE_TIMEOUT", "30m")

		cfg := Load()

		if cfg.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Port)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
		}
		if cfg.PoolCapacity != 3 {
			t.Errorf("PoolCapacity = %d, want 3", cfg.PoolCapacity)
		}
		if cfg.MaxSessionsPerBrowser != 2 {
			t.Errorf("MaxSessionsPerBrowser = %d, want 2", cfg.MaxSessionsPerBrowser)
		}
		if cfg.SessionIdleThreshold != 5*time.Minute {
			t.Errorf("SessionIdleThreshold = %v, want 5m", cfg.SessionIdleThreshold)
		}
		if cfg.ReapInterval != time.Minute {
			t.Errorf("ReapInterval = %v, want 1m", cfg.ReapInterval)
		}
		if cfg.ChromePath != "/usr/bin/chromium" {
			t.Errorf("ChromePath = %q, want %q", cfg.ChromePath, "/usr/bin/chromium")
		}
		if !cfg.DisableStealth {
			t.Error("DisableStealth = false, want true")
		}
		if cfg.ActionTimeout != 120*time.Second {
			t.Errorf("ActionTimeout = %v, want 120s", cfg.ActionTimeout)
		}
		if cfg.WaitContentInterval != 250*time.Millisecond {
			t.Errorf("WaitContentInterval = %v, want 250ms", cfg.WaitContentInterval)
		}
		if cfg.WaitContentTimeout != 10*time.Second {
			t.Errorf("WaitContentTimeout = %v, want 10s", cfg.WaitContentTimeout)
		}
		if cfg.CacheMaxItems != 64 {
			t.Errorf("CacheMaxItems = %d, want 64", cfg.CacheMaxItems)
		}
		if cfg.CacheTTL != 15*time.Minute {
			t.Errorf("CacheTTL = %v, want 15m", cfg.CacheTTL)
		}
		if cfg.SnapshotDBPath != "/data/snapshots.db" {
			t.Errorf("SnapshotDBPath = %q, want %q", cfg.SnapshotDBPath, "/data/snapshots.db")
		}
		if cfg.AuthSecret != "secret-key" {
			t.Errorf("AuthSecret = %q, want %q", cfg.AuthSecret, "secret-key")
		}
		if !cfg.AllowUnauthenticated {
			t.Error("AllowUnauthenticated = false, want true")
		}
		if cfg.RateLimitRPM != 120 {
			t.Errorf("RateLimitRPM = %d, want 120", cfg.RateLimitRPM)
		}
		if cfg.IdleTimeout != 30*time.Minute {
			t.Errorf("IdleTimeout = %v, want 30m", cfg.IdleTimeout)
		}
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		for _, v := range envVars {
			os.Unsetenv(v)
		}
		os.Setenv("PORT", "not-a-number")
		os.Setenv("ACTION_TIMEOUT", "soon")

		cfg := Load()

		if cfg.Port != 8190 {
			t.Errorf("Port = %d, want default 8190", cfg.Port)
		}
		if cfg.ActionTimeout != 60*time.Second {
			t.Errorf("ActionTimeout = %v, want default 60s", cfg.ActionTimeout)
		}
	})
}
