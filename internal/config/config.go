package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/streamapps/appgen/internal/catalog"
)

// Config holds the server configuration
type Config struct {
	Port        int
	OutputDir   string // Root under which each request gets <name>-<version>/
	AppsDir     string // Directory of app descriptors (<app>/app.yaml), optional
	DatabaseURL string // PostgreSQL connection string; empty disables the run ledger
	RedisAddr   string // Shared run lock across instances, optional
	CORSOrigins []string
	LogLevel    slog.Level
	// Version overrides for the catalog; empty means the built-in defaults
	RuntimeVersion        string
	MetadataPluginVersion string
	// SpringCloudVersion overrides the release train; empty defers to the descriptor
	SpringCloudVersion string
	// RequestTimeout bounds every API route except the run event stream
	RequestTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return LoadWithLogger(slog.Default())
}

// LoadWithLogger is like Load but allows specifying a logger.
func LoadWithLogger(logger *slog.Logger) *Config {
	level, err := ParseLogLevel(getEnv("APPGEN_LOG_LEVEL", "info"))
	if err != nil {
		logger.Warn("invalid log level, using info", "error", err)
		level = slog.LevelInfo
	}

	cfg := &Config{
		Port:                  getEnvAsInt("APPGEN_PORT", 3000),
		OutputDir:             getEnv("APPGEN_OUTPUT_DIR", getDefaultOutputDir()),
		AppsDir:               getEnv("APPGEN_APPS_DIR", ""),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             getEnv("APPGEN_REDIS_ADDR", ""),
		CORSOrigins:           getEnvAsList("APPGEN_CORS_ORIGINS", []string{"http://localhost:5173"}),
		LogLevel:              level,
		RuntimeVersion:        getEnv("APPGEN_BOOT_VERSION", catalog.DefaultRuntimeVersion),
		MetadataPluginVersion: getEnv("APPGEN_METADATA_PLUGIN_VERSION", catalog.DefaultMetadataPluginVersion),
		SpringCloudVersion:    getEnv("APPGEN_SPRING_CLOUD_VERSION", ""),
		RequestTimeout:        getEnvAsDuration("APPGEN_REQUEST_TIMEOUT", 60*time.Second),
	}

	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, run history disabled")
	}

	return cfg
}

// ParseLogLevel maps a level name to a slog.Level
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

// getDefaultOutputDir returns the default output directory path
func getDefaultOutputDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/appgen"
	}
	return filepath.Join(homeDir, ".local", "share", "appgen", "apps")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration reads an environment variable as a positive duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// getEnvAsList reads a comma-separated environment variable
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
