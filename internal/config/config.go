package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/Opkumar/Book-Review-System/pkg/config"
	"github.com/Opkumar/Book-Review-System/pkg/database"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the book review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// StoreDriver selects the persistence backend: postgres or memory.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"bookreview"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"bookreview_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"bookreview"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"15"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	BookCacheTTL  time.Duration `env:"BOOK_CACHE_TTL" envDefault:"5m"`

	// Kafka
	KafkaEnabled       bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"book-review-recompute"`
	EventDedupTTL      time.Duration `env:"EVENT_DEDUP_TTL" envDefault:"24h"`

	// JWT
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"24h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"12"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Per-client rate limit on login, registration and review writes.
	// A zero rate disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// CORS and profiling
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load book review config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field rules after the environment is parsed.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.StoreDriver != StoreDriverPostgres && c.StoreDriver != StoreDriverMemory {
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", c.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %g", c.OTELSampleRate)
	}
	if c.JWTAccessExpiry <= 0 {
		return errors.New("JWT_ACCESS_TOKEN_EXPIRY must be positive")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must be set when Kafka is enabled")
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	return nil
}

// Postgres returns the connection settings for the PostgreSQL pool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the connection settings for the Redis client.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// SeedConfig holds the settings of the seed command.
type SeedConfig struct {
	AdminName      string `env:"SEED_ADMIN_NAME" envDefault:"Administrator"`
	AdminEmail     string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@bookreview.local"`
	AdminPassword  string `env:"SEED_ADMIN_PASSWORD,required"`
	SampleData     bool   `env:"SEED_SAMPLE_DATA" envDefault:"true"`
	ReaderPassword string `env:"SEED_READER_PASSWORD" envDefault:"reader-secret"`
}

// LoadSeed reads the seed command settings from environment variables.
func LoadSeed() (*SeedConfig, error) {
	cfg := &SeedConfig{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load seed config: %w", err)
	}
	return cfg, nil
}

// Validate checks the seeded passwords meet the registration rules.
func (c *SeedConfig) Validate() error {
	if len(c.AdminPassword) < 6 {
		return errors.New("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}
	if c.SampleData && len(c.ReaderPassword) < 6 {
		return errors.New("SEED_READER_PASSWORD must be at least 6 characters")
	}
	return nil
}
