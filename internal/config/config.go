package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr string

	// POS backend
	APIBaseURL string

	// Session storage
	SessionBackend string // "redis" or "memory"
	RedisAddr      string
	RedisPass      string
	RedisDB        int

	// Session cookie
	SessionCookie string
	SessionTTL    time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:5000"),

		SessionBackend: getEnv("SESSION_BACKEND", "redis"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getEnv("REDIS_PASS", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		SessionCookie: getEnv("SESSION_COOKIE", "duka_session"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
