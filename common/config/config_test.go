package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("editions")
	require.NoError(t, err)

	assert.Equal(t, "editions", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 30*time.Second, cfg.Reconcile.LockTTL)
	assert.Equal(t, 3, cfg.Reconcile.LockRetries)
	assert.Equal(t, 120, cfg.RateLimit.WebhookPerMinute)
	assert.Contains(t, cfg.DatabaseURL(), "postgres://")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RECONCILE_LOCK_TTL", "45s")
	t.Setenv("CERTIFICATE_BASE_URL", "https://certs.example.com")

	cfg, err := Load("editions")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, 45*time.Second, cfg.Reconcile.LockTTL)
	assert.Equal(t, "https://certs.example.com", cfg.Certificates.BaseURL)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("editions")
	require.NoError(t, err)

	cfg.Service.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Service.Port = 8080
	cfg.Reconcile.LockTTL = 0
	assert.Error(t, cfg.Validate())
}
