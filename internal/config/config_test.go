package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"campusmarket/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("APP_AUTH_JWT_SECRET", "test-secret")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, config.SendLimit, cfg.RateLimit.SendLimit)
	assert.Equal(t, config.ReadLimit, cfg.RateLimit.ReadLimit)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  addr: ":9000"
auth:
  jwt_secret: from-file
  allowed_domains: ["uni.example.edu"]
ratelimit:
  send_limit: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("APP_SERVER_ADDR", ":9100")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "env must override file")
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"uni.example.edu"}, cfg.Auth.AllowedDomains)
	assert.Equal(t, 5, cfg.RateLimit.SendLimit)
}

func TestWindow(t *testing.T) {
	assert.Equal(t, time.Hour, config.Window(3600))
}
