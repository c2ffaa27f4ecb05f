package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/internal/errors"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "ACTINVOTING_CRITICAL_TOLERANCE", "ACTINVOTING_QUAD_NODES",
		"ACTINVOTING_JOBS", "ACTINVOTING_STORE_DRIVER", "ACTINVOTING_STORE_DSN", "ACTINVOTING_SEED", "PORT"} {
		t.Setenv(k, "")
	}
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 1e-8, cfg.Session.CriticalTolerance)
	assert.Equal(t, 48, cfg.Session.QuadratureNodes)
	assert.Equal(t, 1, cfg.Batch.Jobs)
	assert.Equal(t, uint64(42), cfg.Batch.Seed)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "actinvoting.db", cfg.Store.DSN)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ACTINVOTING_CRITICAL_TOLERANCE", "1e-6")
	t.Setenv("ACTINVOTING_JOBS", "8")
	t.Setenv("ACTINVOTING_STORE_DRIVER", "none")
	t.Setenv("ACTINVOTING_SEED", "7")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 1e-6, cfg.Session.CriticalTolerance)
	assert.Equal(t, 8, cfg.Batch.Jobs)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, uint64(7), cfg.Batch.Seed)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ACTINVOTING_CRITICAL_TOLERANCE", "-1"},
		{"ACTINVOTING_QUAD_NODES", "1"},
		{"ACTINVOTING_JOBS", "0"},
		{"ACTINVOTING_STORE_DRIVER", "mysql"},
		{"ACTINVOTING_SEED", "-3"},
		{"PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
