// Package config provides configuration management for the webpilot service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the webpilot service.
type Config struct {
	// Server settings
	Port     int
	LogLevel string

	// Pool settings
	PoolCapacity          int           // Default max browsers per pool
	MaxSessionsPerBrowser int           // Max concurrent page sessions per browser
	SessionIdleThreshold  time.Duration // Session considered idle past this
	ReapInterval          time.Duration // Idle-session reaper sweep interval (0 disables)

	// Browser engine settings
	ChromePath     string
	DisableStealth bool

	// Action settings
	ActionTimeout       time.Duration // Per-request dispatch bound
	WaitContentInterval time.Duration // Content-wait poll interval
	WaitContentTimeout  time.Duration // Content-wait overall bound

	// Session handle cache settings
	CacheProvider string
	CacheMaxItems int
	CacheTTL      time.Duration

	// Snapshot persistence
	SnapshotDBPath string

	// Authentication
	AuthSecret           string // HS256 shared secret for bearer tokens
	AllowUnauthenticated bool

	// Rate limiting (requests per minute per IP, 0 disables)
	RateLimitRPM int

	// Server idle shutdown (0 disables)
	IdleTimeout time.Duration
}

// Load creates a Config from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:                  getEnvInt("PORT", 8190),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PoolCapacity:          getEnvInt("POOL_CAPACITY", 5),
		MaxSessionsPerBrowser: getEnvInt("MAX_SESSIONS_PER_BROWSER", 10),
		SessionIdleThreshold:  getEnvDuration("SESSION_IDLE_THRESHOLD", 180*time.Second),
		ReapInterval:          getEnvDuration("REAP_INTERVAL", 0),
		ChromePath:            getEnv("CHROME_PATH", ""),
		DisableStealth:        getEnv("DISABLE_STEALTH", "false") == "true",
		ActionTimeout:         getEnvDuration("ACTION_TIMEOUT", 60*time.Second),
		WaitContentInterval:   getEnvDuration("WAIT_CONTENT_INTERVAL", 500*time.Millisecond),
		WaitContentTimeout:    getEnvDuration("WAIT_CONTENT_TIMEOUT", 30*time.Second),
		CacheProvider:         getEnv("CACHE_PROVIDER", "memory"),
		CacheMaxItems:         getEnvInt("CACHE_MAX_ITEMS", 1024),
		CacheTTL:              getEnvDuration("CACHE_TTL", 1*time.Hour),
		SnapshotDBPath:        getEnv("SNAPSHOT_DB_PATH", ""),
		AuthSecret:            getEnv("AUTH_SECRET", ""),
		AllowUnauthenticated:  getEnv("ALLOW_UNAUTHENTICATED", "false") == "true",
		RateLimitRPM:          getEnvInt("RATE_LIMIT_RPM", 0),
		IdleTimeout:           getEnvDuration("IDLE_TIMEOUT", 0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
