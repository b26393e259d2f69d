package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.NotEmpty(t, cfg.STUNServers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ROULETTE_ADDR", ":9099")
	t.Setenv("ROULETTE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9099", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}
