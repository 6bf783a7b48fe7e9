package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-0123456789-test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, time.Hour, cfg.RequestTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, int32(100), cfg.SweepBatchSize)
	assert.Equal(t, time.Hour, cfg.ReconciliationInterval)
	assert.Equal(t, "masscoin-ledger", cfg.JWTIssuer)
	assert.Equal(t, "masscoin-api", cfg.JWTAudience)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-0123456789-test-secret")
	t.Setenv("MASSCOIN_SWEEP_INTERVAL", "2m")
	t.Setenv("MASSCOIN_REQUEST_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.RequestTTL)
}
