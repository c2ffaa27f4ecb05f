package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/adapters/store"
	"actinvoting/internal/config"
)

func testConfig(driver, dsn string) *config.Config {
	return &config.Config{
		LogLevel: "ERROR",
		Session:  config.SessionConfig{CriticalTolerance: 1e-8, QuadratureNodes: 32},
		Batch:    config.BatchConfig{Jobs: 3, Seed: 1},
		Store:    config.StoreConfig{Driver: driver, DSN: dsn},
		Server:   config.ServerConfig{Port: "8080"},
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	c, err := New(testConfig("none", ""))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Runner.Jobs)
	assert.NotNil(t, c.Runner.RNG)
	assert.Len(t, c.SessionOptions(), 3)

	require.NoError(t, c.InitStore(context.Background()))
	assert.IsType(t, store.NopStore{}, c.Store)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestInitStore_SQLite(t *testing.T) {
	c, err := New(testConfig(store.DriverSQLite, ":memory:"))
	require.NoError(t, err)
	require.NoError(t, c.InitStore(context.Background()))
	assert.IsType(t, &store.SQLStore{}, c.Store)
	assert.Same(t, c.Store, c.Runner.Store)
	assert.NoError(t, c.Shutdown(context.Background()))

	c, err = New(testConfig("mysql", "x"))
	require.NoError(t, err)
	assert.Error(t, c.InitStore(context.Background()))
}
