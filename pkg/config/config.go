package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration.
// ⭐ SSOT: every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (market data store, optional)
	Database DatabaseConfig

	// Redis (shared collaborator cache, optional)
	Redis RedisConfig

	// Collaborators
	Sentiment  CollaboratorConfig
	Prediction CollaboratorConfig

	// CacheTTL bounds how long a collaborator reading is reused.
	CacheTTL time.Duration
	// CollaboratorTimeout is the default per-evaluation budget for
	// sentiment and prediction calls. A risk config may override it.
	CollaboratorTimeout time.Duration

	// RiskConfigPath points to the YAML risk configuration. Empty means defaults.
	RiskConfigPath string

	// Watcher
	Watchlist      []string
	WatchSchedule  string
	WatchTimeframe string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a market data store is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// CollaboratorConfig describes an HTTP signal collaborator.
type CollaboratorConfig struct {
	URL           string
	APIKey        string
	RatePerSecond float64
	Burst         int
	MaxRetries    int
}

// Enabled reports whether the collaborator endpoint is set.
func (c CollaboratorConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Sentiment: CollaboratorConfig{
			URL:           getEnv("SENTIMENT_URL", ""),
			APIKey:        getEnv("SENTIMENT_API_KEY", ""),
			RatePerSecond: getEnvAsFloat("SENTIMENT_RATE_PER_SECOND", 5),
			Burst:         getEnvAsInt("SENTIMENT_BURST", 5),
			MaxRetries:    getEnvAsInt("SENTIMENT_MAX_RETRIES", 1),
		},

		Prediction: CollaboratorConfig{
			URL:           getEnv("PREDICTION_URL", ""),
			APIKey:        getEnv("PREDICTION_API_KEY", ""),
			RatePerSecond: getEnvAsFloat("PREDICTION_RATE_PER_SECOND", 5),
			Burst:         getEnvAsInt("PREDICTION_BURST", 5),
			MaxRetries:    getEnvAsInt("PREDICTION_MAX_RETRIES", 1),
		},

		CacheTTL:            getEnvAsDuration("CACHE_TTL", "5m"),
		CollaboratorTimeout: getEnvAsDuration("COLLABORATOR_TIMEOUT", "3s"),
		RiskConfigPath:      getEnv("RISK_CONFIG_PATH", ""),

		Watchlist:      getEnvAsList("WATCHLIST"),
		WatchSchedule:  getEnv("WATCH_SCHEDULE", "0 */5 * * * *"),
		WatchTimeframe: getEnv("WATCH_TIMEFRAME", "1h"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks environment-level invariants
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("COLLABORATOR_TIMEOUT must be positive")
	}
	return nil
}

// loadEnvFile tries to load .env from the usual locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
