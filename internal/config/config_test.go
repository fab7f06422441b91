package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "")
	t.Setenv("PAYMENT_PROVIDER", "")
	t.Setenv("STORE_TIMEOUT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9091", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, ProviderFake, cfg.PaymentProvider)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "usd", cfg.Currency)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_DB=2\nPRODUCT_CACHE_TTL=30s\n"), 0o600))
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("REDIS_DB", "")
	t.Setenv("PRODUCT_CACHE_TTL", "")
	// godotenv не перезаписывает уже выставленные переменные, поэтому очищаем их через Unsetenv
	require.NoError(t, os.Unsetenv("REDIS_DB"))
	require.NoError(t, os.Unsetenv("PRODUCT_CACHE_TTL"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.ProductCacheTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")

	t.Setenv("STORE", "mongo")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, `unknown STORE "mongo"`)
}
