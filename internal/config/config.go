package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Vector-Bandit application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Bandit     BanditConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the raw tracking-event store.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled   bool
	RPS       float64
	Burst     int
	MgmtRPS   float64
	MgmtBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// BanditConfig holds the decision-engine settings.
type BanditConfig struct {
	// SampleCount is how many Beta draws are averaged per item. 1
	// restores classic single-draw Thompson sampling.
	SampleCount int
	// DefaultKPIMetric and DefaultKPIWeight form the fallback weight
	// mapping for item groups without configured KPI weights.
	DefaultKPIMetric string
	DefaultKPIWeight float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("VECTOR_BANDIT_HTTP_ADDR", ":8080"),
			Env:             getEnv("VECTOR_BANDIT_ENV", "development"),
			ShutdownTimeout: getDurationEnv("VECTOR_BANDIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("VECTOR_BANDIT_DB_ENABLED", true),
			Host:     getEnv("VECTOR_BANDIT_DB_HOST", "localhost"),
			Port:     getIntEnv("VECTOR_BANDIT_DB_PORT", 5432),
			User:     getEnv("VECTOR_BANDIT_DB_USER", "vectorbandit"),
			Password: getEnv("VECTOR_BANDIT_DB_PASSWORD", "vectorbandit_secret"),
			DBName:   getEnv("VECTOR_BANDIT_DB_NAME", "vectorbandit"),
			SSLMode:  getEnv("VECTOR_BANDIT_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("VECTOR_BANDIT_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("VECTOR_BANDIT_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("VECTOR_BANDIT_REDIS_ENABLED", false),
			Addr:     getEnv("VECTOR_BANDIT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("VECTOR_BANDIT_REDIS_PASSWORD", ""),
			DB:       getIntEnv("VECTOR_BANDIT_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("VECTOR_BANDIT_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("VECTOR_BANDIT_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("VECTOR_BANDIT_CLICKHOUSE_DB", "tracking"),
			User:     getEnv("VECTOR_BANDIT_CLICKHOUSE_USER", "default"),
			Password: getEnv("VECTOR_BANDIT_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("VECTOR_BANDIT_AUTH_ENABLED", false),
			MasterKey: getEnv("VECTOR_BANDIT_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("VECTOR_BANDIT_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/pull_levers"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:   getBoolEnv("VECTOR_BANDIT_RATE_LIMIT_ENABLED", true),
			RPS:       getFloatEnv("VECTOR_BANDIT_RATE_LIMIT_RPS", 1000),
			Burst:     getIntEnv("VECTOR_BANDIT_RATE_LIMIT_BURST", 100),
			MgmtRPS:   getFloatEnv("VECTOR_BANDIT_RATE_LIMIT_MGMT_RPS", 100),
			MgmtBurst: getIntEnv("VECTOR_BANDIT_RATE_LIMIT_MGMT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("VECTOR_BANDIT_LOG_LEVEL", "info"),
			Format: getEnv("VECTOR_BANDIT_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("VECTOR_BANDIT_METRICS_ENABLED", true),
			Path:    getEnv("VECTOR_BANDIT_METRICS_PATH", "/metrics"),
		},
		Bandit: BanditConfig{
			SampleCount:      getIntEnv("VECTOR_BANDIT_SAMPLE_COUNT", 100),
			DefaultKPIMetric: getEnv("VECTOR_BANDIT_DEFAULT_KPI_METRIC", "num_engagements"),
			DefaultKPIWeight: getFloatEnv("VECTOR_BANDIT_DEFAULT_KPI_WEIGHT", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("VECTOR_BANDIT_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Bandit.SampleCount < 1 {
		return fmt.Errorf("VECTOR_BANDIT_SAMPLE_COUNT must be at least 1")
	}
	if c.Bandit.DefaultKPIWeight <= 0 {
		return fmt.Errorf("VECTOR_BANDIT_DEFAULT_KPI_WEIGHT must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
