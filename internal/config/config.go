// Package config loads service configuration from environment variables,
// falling back to local-development defaults.
package config

import (
	"os"
	"time"
)

// Config holds everything the process needs at startup.
type Config struct {
	Server struct {
		Port           string
		ReadTimeout    time.Duration
		WriteTimeout   time.Duration
		IdleTimeout    time.Duration
		RequestTimeout time.Duration
	}
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	Auth struct {
		JWTSecret string
		JWTExpiry time.Duration
	}
	Redis struct {
		Addr string // empty disables caching
	}
	LogLevel string
}

// Load reads the full configuration from the environment.
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", "15s")
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s")
	cfg.Server.IdleTimeout = getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s")
	cfg.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", "10s")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnv("DB_NAME", "eventhub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.JWTExpiry = getEnvAsDuration("JWT_EXPIRY", "24h")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
