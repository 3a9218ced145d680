// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Credentials are not stored
// here; they are resolved separately by the credentials package.
type Config struct {
	AgentName         string
	DatabasePath      string
	SecretsPath       string
	ExcludedCustomers []string
	CacheTTL          time.Duration
	RefreshInterval   time.Duration
	RequestTimeout    time.Duration
	PageSize          int
	MaxPages          int
}

// Default values
const (
	defaultAgentName       = "ProjectManager"
	defaultCacheTTL        = 5 * time.Minute
	defaultRefreshInterval = 5 * time.Minute
	defaultRequestTimeout  = 30 * time.Second
	defaultPageSize        = 50
	defaultMaxPages        = 100
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		AgentName:         getEnvString("AGENT_NAME", defaultAgentName),
		DatabasePath:      getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		SecretsPath:       getEnvString("SECRETS_PATH", getDefaultSecretsPath()),
		ExcludedCustomers: getEnvList("EXCLUDED_CUSTOMERS"),
		CacheTTL:          getEnvDuration("CACHE_TTL", defaultCacheTTL),
		RefreshInterval:   getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", defaultRequestTimeout),
		PageSize:          getEnvInt("PAGE_SIZE", defaultPageSize),
		MaxPages:          getEnvInt("MAX_PAGES", defaultMaxPages),
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "agent-usage-tui", ".env"),
		)
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "usage.db"
	}
	return filepath.Join(home, ".config", "agent-usage-tui", "usage.db")
}

// getDefaultSecretsPath returns the default path for the secrets TOML file.
func getDefaultSecretsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "secrets.toml"
	}
	return filepath.Join(home, ".config", "agent-usage-tui", "secrets.toml")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves a positive integer environment variable or returns the
// default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice,
// trimming whitespace and dropping empty entries.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
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
