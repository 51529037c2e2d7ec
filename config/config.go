package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from environment variables
// with an optional .env file on top.
type Config struct {
	ServiceName string
	LogLevel    string
	HTTPAddr    string

	// DatabaseURL is the hosted Postgres DSN (Supabase in production).
	DatabaseURL string

	// Auth settings
	JWTSecret         string
	TokenExpiration   time.Duration
	PasswordMinLength int
	MaxLoginAttempts  int
	LockoutDuration   time.Duration
	BCryptCost        int

	// Grid client settings
	FlushDelay    time.Duration
	BulkThreshold int
	HistoryLimit  int

	// Legacy spreadsheet-backed API
	LegacyBaseURL string
	LegacyToken   string

	// Sync job
	SyncInterval time.Duration

	// Bootstrap settings
	BootstrapAdminUsername string
	BootstrapAdminPassword string

	envFile string
}

// Load loads the configuration from environment variables. A .env file in
// the working directory is applied first when present; missing files are
// not an error.
func Load() (*Config, error) {
	envFile := getEnvDefault("OPSBOARD_ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ServiceName: getEnvDefault("SERVICE_NAME", "opsboard"),
		LogLevel:    getEnvDefault("LOG_LEVEL", "info"),
		HTTPAddr:    getEnvDefault("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:         getEnvDefault("JWT_SECRET", ""),
		TokenExpiration:   getEnvDuration("TOKEN_EXPIRATION", 12*time.Hour),
		PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 8),
		MaxLoginAttempts:  getEnvInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:   getEnvDuration("LOCKOUT_DURATION", 15*time.Minute),
		BCryptCost:        getEnvInt("BCRYPT_COST", 10),

		FlushDelay:    getEnvDuration("GRID_FLUSH_DELAY", 500*time.Millisecond),
		BulkThreshold: getEnvInt("GRID_BULK_THRESHOLD", 2),
		HistoryLimit:  getEnvInt("GRID_HISTORY_LIMIT", 50),

		LegacyBaseURL: os.Getenv("LEGACY_API_URL"),
		LegacyToken:   os.Getenv("LEGACY_API_TOKEN"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Minute),

		BootstrapAdminUsername: getEnvDefault("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapAdminPassword: getEnvDefault("BOOTSTRAP_ADMIN_PASSWORD", "ChangeMe123!"),

		envFile: envFile,
	}
	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
