package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_QUERY_TIMEOUT", "DB_MAX_CONCURRENT_QUERIES", "CACHE_TTL_CATEGORIES",
		"CACHE_TTL_PRIMARY", "CACHE_TTL_FALLBACK", "SHIPPING_FEE", "NOTIFY_TRANSPORT"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.DBQueryTimeout)
	assert.Equal(t, 8, cfg.DBMaxConcurrentQuery)
	assert.Equal(t, time.Hour, cfg.CacheTTLCategories)
	assert.Equal(t, time.Minute, cfg.CacheTTLPrimary)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTLFallback)
	assert.Equal(t, int64(5000), cfg.ShippingFee)
	assert.Equal(t, "log", cfg.NotifyTransport)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("DB_MAX_CONCURRENT_QUERIES", "3")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("NOTIFY_TRANSPORT", "AMQP")
	t.Setenv("SHIPPING_FEE", "7000")

	cfg := LoadConfig()

	assert.Equal(t, 750*time.Millisecond, cfg.DBQueryTimeout)
	assert.Equal(t, 3, cfg.DBMaxConcurrentQuery)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, "amqp", cfg.NotifyTransport)
	assert.Equal(t, int64(7000), cfg.ShippingFee)
}

func TestLoadConfig_MalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("DB_QUERY_TIMEOUT", "soon")
	t.Setenv("DB_MAX_CONCURRENT_QUERIES", "many")
	t.Setenv("CACHE_TTL_PRIMARY", "-5s")

	cfg := LoadConfig()

	assert.Equal(t, 2*time.Second, cfg.DBQueryTimeout)
	assert.Equal(t, 8, cfg.DBMaxConcurrentQuery)
	assert.Equal(t, time.Minute, cfg.CacheTTLPrimary)
}

func TestGetEnvFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))

	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("DB_PASSWORD_FILE", path)

	assert.Equal(t, "s3cret", LoadConfig().DBPassword)
}

func TestGetEnvFromFile_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("DB_PASSWORD_FILE", filepath.Join(t.TempDir(), "nope"))

	assert.Equal(t, "from-env", LoadConfig().DBPassword)
}
