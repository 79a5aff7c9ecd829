package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.BookCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTAccessExpiry)
	assert.False(t, cfg.KafkaEnabled)
	assert.False(t, cfg.RedisEnabled)
	assert.Empty(t, cfg.PprofAllowedCIDRs)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BOOK_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.BookCacheTTL)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoad_InvalidSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE")
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")

	t.Setenv("RATE_LIMIT_RPS", "2")
	t.Setenv("RATE_LIMIT_BURST", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_BURST")

	t.Setenv("RATE_LIMIT_RPS", "0")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_ProductionRequiresStrongSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explicitly set")

	t.Setenv("JWT_SECRET", "too-short")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")

	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	_, err = Load()
	assert.NoError(t, err)
}

func TestConfig_Postgres(t *testing.T) {
	cfg := &Config{
		PostgresHost:          "db",
		PostgresPort:          5433,
		PostgresUser:          "reader",
		PostgresPass:          "p@ss",
		PostgresDB:            "books",
		PostgresSSL:           "require",
		DBMaxConns:            10,
		DBMaxConnLifetimeMins: 30,
	}

	pg := cfg.Postgres()
	assert.Equal(t, "postgres://reader:p%40ss@db:5433/books?sslmode=require", pg.DSN())
	assert.Equal(t, int32(10), pg.MaxConns)
	assert.Equal(t, 30*time.Minute, pg.MaxConnLifetime)
}

func TestConfig_Redis(t *testing.T) {
	cfg := &Config{RedisHost: "cache", RedisPort: 6380, RedisDB: 2}
	assert.Equal(t, "cache:6380", cfg.Redis().Addr())
	assert.Equal(t, 2, cfg.Redis().DB)
}

func TestLoadSeed(t *testing.T) {
	_, err := LoadSeed()
	require.Error(t, err, "admin password is required")

	t.Setenv("SEED_ADMIN_PASSWORD", "12345")
	_, err = LoadSeed()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_ADMIN_PASSWORD")

	t.Setenv("SEED_ADMIN_PASSWORD", "bootstrap-secret")
	cfg, err := LoadSeed()
	require.NoError(t, err)
	assert.Equal(t, "admin@bookreview.local", cfg.AdminEmail)
	assert.True(t, cfg.SampleData)
}
