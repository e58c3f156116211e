package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_EXPIRATION_HOURS", "not-a-number")

	cfg, err := Load("backoffice")
	require.NoError(t, err)

	assert.Equal(t, "backoffice", cfg.ServiceName)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, "inventary-user-2025", cfg.Storage.Bucket)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "anonymousToken", cfg.Session.CookieName)
	assert.False(t, cfg.Storage.Enabled())
	assert.False(t, cfg.Server.IsProduction())
}

func TestLoadRejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load("backoffice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")

	t.Setenv("JWT_SIGNING_KEY", "a-real-signing-key")
	_, err = Load("backoffice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "a-real-session-secret")
	cfg, err := Load("backoffice")
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SIGNING_KEY", defaultJWTSigningKey)
	_, err = Load("backoffice")
	assert.NoError(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("STORAGE_PRESIGN_TTL", "2h")

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsList("CORS_ALLOW_ORIGINS", nil))
	assert.Equal(t, logger.Silent, getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn))
	assert.Equal(t, 2*time.Hour, getEnvAsDuration("STORAGE_PRESIGN_TTL", time.Minute))
	assert.Equal(t, "https://x", getEnvAsList("MISSING_LIST", []string{"https://x"})[0])

	t.Setenv("STORAGE_PATH_STYLE", "true")
	assert.True(t, getEnvAsBool("STORAGE_PATH_STYLE", false))
	t.Setenv("STORAGE_PATH_STYLE", "maybe")
	assert.False(t, getEnvAsBool("STORAGE_PATH_STYLE", false))
}
