package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.DB.Driver)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 20, cfg.Listing.DefaultPageSize)
	assert.Equal(t, 200, cfg.Listing.MaxPageSize)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.PasswordResetTTL)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadPostgresBuildsDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_USER", "hub")
	t.Setenv("DB_PASSWORD", "p@ss")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "servicehub")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://hub:p%40ss@db:5433/servicehub", cfg.DB.DSN)
}

func TestLoadRejectsPageSizes(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LISTING_DEFAULT_PAGE_SIZE", "50")
	t.Setenv("LISTING_MAX_PAGE_SIZE", "10")

	_, err := Load()
	require.Error(t, err)
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList("  "))
	assert.Equal(t, []string{"a", "b"}, parseList(" a, ,b "))
}

func TestLoadDB(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://hub@localhost/servicehub")
	cfg, err := LoadDB()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://hub@localhost/servicehub", cfg.DSN)

	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "")
	_, err = LoadDB()
	assert.Error(t, err)
}
