package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/joho/godotenv"
)

// Idempotency backends
const (
	IdempotencyMemory   = "memory"
	IdempotencyPostgres = "postgres"
	IdempotencyRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port            string
	CORSOrigins     []string
	Env             string
	RateLimitPerMin int
	RateLimitBurst  int
	OpenAPIServers  []string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// Revenue ledger
	PeriodMinYear      int
	PeriodMaxYear      int
	ReportWindowMonths int
	ReconcileInterval  time.Duration

	// Idempotency
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	RedisURL           string

	// Invoice events
	AMQP AMQPConfig

	// Dead-letter archive
	S3 S3Config
}

// AMQPConfig holds the invoice event queue settings
type AMQPConfig struct {
	URL      string // Empty disables the consumer
	Exchange string
	Queue    string
}

// S3Config holds AWS S3 configuration for the dead-letter archive
type S3Config struct {
	Region          string
	Bucket          string // Empty disables the archive
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                getEnv("ENV", "development"),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
		OpenAPIServers:     strings.Split(getEnv("OPENAPI_SERVERS", "http://localhost:8080"), ","),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogOutput:          getEnv("LOG_OUTPUT", "stderr"),
		PeriodMinYear:      getEnvInt("PERIOD_MIN_YEAR", 2000),
		PeriodMaxYear:      getEnvInt("PERIOD_MAX_YEAR", 2100),
		ReportWindowMonths: getEnvInt("REPORT_WINDOW_MONTHS", 12),
		ReconcileInterval:  getEnvDuration("RECONCILE_INTERVAL", time.Hour),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", IdempotencyMemory)),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 72*time.Hour),
		RedisURL:           getEnv("REDIS_URL", ""),
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "invoices"),
			Queue:    getEnv("AMQP_QUEUE", "revenue-ledger.invoice-events"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("DEADLETTER_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	format := c.LogFormat
	if c.IsProduction() && format == "" {
		format = "json"
	}
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		Output:     c.LogOutput,
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PeriodMinYear > c.PeriodMaxYear {
		return fmt.Errorf("PERIOD_MIN_YEAR must not exceed PERIOD_MAX_YEAR")
	}
	if c.ReportWindowMonths <= 0 {
		return fmt.Errorf("REPORT_WINDOW_MONTHS must be positive")
	}
	switch c.IdempotencyBackend {
	case IdempotencyMemory, IdempotencyPostgres:
	case IdempotencyRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when IDEMPOTENCY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
