package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fund_data", cfg.DataDir)
	assert.Equal(t, 8, cfg.RequestsPerSec)
	assert.NotEmpty(t, cfg.UserAgent)
	assert.False(t, cfg.Verbose)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EDGAR_USER_AGENT", "test-agent/1.0 (ops@example.com)")
	t.Setenv("EDGAR_RATE_LIMIT", "5")
	t.Setenv("DATA_DIR", "/tmp/prospectuses")
	t.Setenv("VERBOSE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0 (ops@example.com)", cfg.UserAgent)
	assert.Equal(t, 5, cfg.RequestsPerSec)
	assert.Equal(t, "/tmp/prospectuses", cfg.DataDir)
	assert.True(t, cfg.Verbose)
}

func TestLoadRejectsExcessiveRate(t *testing.T) {
	t.Setenv("EDGAR_RATE_LIMIT", "25")

	_, err := Load()
	assert.ErrorIs(t, err, RateLimitErr)
}
