package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/config"
	"kpicli/internal/infrastructure"
	"kpicli/internal/store"
)

func TestNewWithConfigInMemory(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfg := config.Default()
	cfg.Database.InMemory = true
	cfg.Logging.Output = "console"
	cfg.Portals.CallCenter.Enabled = true
	cfg.Portals.CallCenter.URL = "http://callcenter.internal"

	a, err := NewWithConfig(cfg)
	require.NoError(t, err)

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Ingest)
	assert.NotNil(t, a.Runner)
	assert.NotNil(t, a.Scheduler)
	assert.NotNil(t, a.Server)
	assert.Equal(t, ":8080", a.Server.Addr)

	_, ok := a.Store.(*store.Memory)
	assert.True(t, ok)
}

func TestNewWithConfigBadSchedule(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfg := config.Default()
	cfg.Database.InMemory = true
	cfg.Logging.Output = "console"
	cfg.Schedule.DailyAt = "not-a-time"

	_, err := NewWithConfig(cfg)
	require.Error(t, err)
}
