// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	SessionPath  string

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccountCount int
	CapacityMode string

	ResetCheckInterval time.Duration
	RefreshInterval    time.Duration
	SaveDebounce       time.Duration
	RateWindowDays     float64

	MetricsAddr          string
	NotificationsEnabled bool

	LogLevel string
	LogFile  string

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string
}

// Default values
const (
	defaultAccountCount       = 3
	defaultCapacityMode       = "normal"
	defaultResetCheckInterval = 5 * time.Minute
	defaultRefreshInterval    = time.Minute
	defaultSaveDebounce       = 3 * time.Second
	defaultRateWindowDays     = 7
	defaultRedisAddr          = "localhost:6379"
	maxAccounts               = 3
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	var envFile string
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				envFile = path
			}
			break
		}
	}

	dataDir := getDefaultDataDir()

	cfg := &Config{
		DatabasePath:         getEnvString("DATABASE_PATH", filepath.Join(dataDir, "ledger.db")),
		SessionPath:          getEnvString("SESSION_PATH", filepath.Join(dataDir, "session.json")),
		StoreBackend:         strings.ToLower(getEnvString("STORE_BACKEND", BackendSQLite)),
		RedisAddr:            getEnvString("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:        getEnvString("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		AccountCount:         getEnvInt("ACCOUNT_COUNT", defaultAccountCount),
		CapacityMode:         strings.ToLower(getEnvString("CAPACITY_MODE", defaultCapacityMode)),
		ResetCheckInterval:   getEnvDuration("RESET_CHECK_INTERVAL", defaultResetCheckInterval),
		RefreshInterval:      getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		SaveDebounce:         getEnvDuration("SAVE_DEBOUNCE", defaultSaveDebounce),
		RateWindowDays:       getEnvFloat("RATE_WINDOW_DAYS", defaultRateWindowDays),
		MetricsAddr:          getEnvString("METRICS_ADDR", ""),
		NotificationsEnabled: getEnvBool("NOTIFICATIONS_ENABLED", true),
		LogLevel:             getEnvString("LOG_LEVEL", "info"),
		LogFile:              getEnvString("LOG_FILE", filepath.Join(dataDir, "ult.log")),
		EnvFile:              envFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.StoreBackend == BackendSQLite {
		if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
			return nil, err
		}
	}

	if err := ensureDir(filepath.Dir(cfg.SessionPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q (want sqlite or redis)", c.StoreBackend))
	}

	if c.AccountCount < 1 || c.AccountCount > maxAccounts {
		errs = append(errs, fmt.Errorf("ACCOUNT_COUNT must be between 1 and %d, got %d", maxAccounts, c.AccountCount))
	}
	if c.CapacityMode != "normal" && c.CapacityMode != "doubled" {
		errs = append(errs, fmt.Errorf("CAPACITY_MODE must be normal or doubled, got %q", c.CapacityMode))
	}
	if c.ResetCheckInterval <= 0 || c.RefreshInterval <= 0 || c.SaveDebounce <= 0 {
		errs = append(errs, errors.New("timer intervals must be positive"))
	}
	if c.RateWindowDays <= 0 {
		errs = append(errs, fmt.Errorf("RATE_WINDOW_DAYS must be positive, got %v", c.RateWindowDays))
	}

	return errors.Join(errs...)
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "usage-ledger", ".env"),
			filepath.Join(home, ".usage-ledger", ".env"),
		)
	}

	return paths
}

// getDefaultDataDir returns the directory holding the database, session and logs.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "usage-ledger")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
// Accepts the forms understood by strconv.ParseBool plus yes/no and on/off.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
