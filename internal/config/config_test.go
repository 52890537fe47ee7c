package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxora/maestro/internal/backoff"
	"github.com/voxora/maestro/internal/config"
	"github.com/voxora/maestro/internal/poller"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Batch.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.Batch.InterSubmitDelay)
	assert.Equal(t, poller.DefaultInterval, cfg.Batch.PollInterval)
	assert.Equal(t, 30, cfg.Batch.MaxPollAttempts)
	assert.Equal(t, backoff.DefaultBase, cfg.Batch.RetryBase)
	assert.Equal(t, backoff.DefaultMaxAttempts, cfg.Batch.MaxSubmitRetries)
	assert.Equal(t, "chunked", cfg.Batch.Window)
	assert.Equal(t, "https://duomiapi.com", cfg.Vendor.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Vendor.Timeout)
	assert.Equal(t, 9091, cfg.Metrics.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAESTRO_MAX_CONCURRENT", "8")
	t.Setenv("MAESTRO_POLL_INTERVAL_MS", "500")
	t.Setenv("DUOMI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 500*time.Millisecond, cfg.Batch.PollInterval)
	assert.Equal(t, "sk-test", cfg.Vendor.APIKey)
}
