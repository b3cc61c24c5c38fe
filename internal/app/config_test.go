package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ERP_BASE_URL", "https://erp.example.com")
	t.Setenv("SESSION_BACKEND", SessionBackendMemory)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 30*time.Second, cfg.ERPTimeout)
	require.Equal(t, SessionBackendMemory, cfg.SessionBackend)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyRetention)
	require.False(t, cfg.UsesRedis())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsRelativeBaseURL(t *testing.T) {
	t.Setenv("ERP_BASE_URL", "erp.example.com")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "ERP_BASE_URL")
}

func TestLoadConfigRedisBackendNeedsSecret(t *testing.T) {
	t.Setenv("ERP_BASE_URL", "https://erp.example.com")
	t.Setenv("SESSION_BACKEND", SessionBackendRedis)
	t.Setenv("SESSION_SECRET", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "session secret")

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "3")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.UsesRedis())
	require.Equal(t, 3, cfg.RedisOptions().DB)
}

func TestLoadConfigJobsNeedSharedSession(t *testing.T) {
	t.Setenv("ERP_BASE_URL", "https://erp.example.com")
	t.Setenv("SESSION_BACKEND", SessionBackendMemory)
	t.Setenv("JOBS_ENABLED", "true")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "JOBS_ENABLED")
}
