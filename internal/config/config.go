package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	NumWorkers  int

	// ConflictWindow is the fixed overlap window applied to every meetup
	// when checking a user's schedule.
	ConflictWindow time.Duration

	// Notification retry policy.
	NotifyMaxAttempts int
	NotifyBaseDelay   time.Duration
	NotifyMaxDelay    time.Duration

	// SMTP delivery; when Addr is empty, mails are logged instead of sent.
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		NumWorkers:        getEnvInt("NUM_WORKERS", 10),
		ConflictWindow:    getEnvDuration("CONFLICT_WINDOW", time.Hour),
		NotifyMaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 5),
		NotifyBaseDelay:   getEnvDuration("NOTIFY_BASE_DELAY", 30*time.Second),
		NotifyMaxDelay:    getEnvDuration("NOTIFY_MAX_DELAY", 10*time.Minute),
		SMTPAddr:          getEnv("SMTP_ADDR", ""),
		SMTPFrom:          getEnv("SMTP_FROM", "Meetapp <noreply@meetapp.local>"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
