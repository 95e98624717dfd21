/*
config.go - Environment-driven configuration

PURPOSE:
  Loads runtime configuration from the environment, with a .env file as
  optional local override (godotenv). Every knob has a default so the
  server runs with zero configuration in development.

VARIABLES:
  PORT                   HTTP listen port (default 8080)
  DATABASE_PATH          SQLite database file (default ./data/orderdesk.db)
  CORS_ORIGINS           Comma-separated allowed origins
  AUDIT_INTERVAL         How often the balance audit runs (Go duration)
  AUDIT_ENABLED          Set to "false" to disable the scheduler
  LOG_LEVEL              trace|debug|info|warn|error (default info)
  LOG_FORMAT             console|json (default console)

SEE ALSO:
  - logger/logger.go: consumes the LOG_* settings
  - cmd/server/main.go: the only caller of Load
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	CORSOrigins  []string

	AuditInterval time.Duration
	AuditEnabled  bool

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; env vars alone are a valid configuration.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/orderdesk.db"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		AuditEnabled: getEnv("AUDIT_ENABLED", "true") != "false",
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
	}

	interval, err := time.ParseDuration(getEnv("AUDIT_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_INTERVAL: %w", err)
	}
	cfg.AuditInterval = interval

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("DATABASE_PATH must not be empty")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
