package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_NAME", "stalls")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadFrom_Defaults(t *testing.T) {
	setRequired(t)
	v, err := newViper("")
	require.NoError(t, err)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "stall-rental.ledger", cfg.EventQueue)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_SECRET", "")
	v, err := newViper("")
	require.NoError(t, err)

	_, err = LoadFrom(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadFrom_RateLimitNormalized(t *testing.T) {
	setRequired(t)
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	v, err := newViper("")
	require.NoError(t, err)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.RateLimit.Capacity)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.TTL)
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPass: "p", DBHost: "h", DBPort: "3306", DBName: "n"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", cfg.DSN())
	cfg.DBPass = ""
	assert.Equal(t, "u@tcp(h:3306)/n?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", cfg.DSN())
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
	assert.Equal(t, "cache:6380", RedisConfig{Addr: "cache:6380"}.Address())
	assert.Equal(t, "h:1", RedisConfig{Addr: "cache:6380", Host: "h", Port: "1"}.Address())
}
