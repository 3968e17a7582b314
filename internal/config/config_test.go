package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpicli/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "08:10", cfg.Schedule.DailyAt)
	assert.Equal(t, "15:10", cfg.Schedule.DecisionAt)
	assert.Equal(t, 3, cfg.Database.MaxRetries)
	assert.Equal(t, time.Second, cfg.Database.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "central_indicator_monitor_data", cfg.Database.Table)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
database:
  host: db.internal
  user: dcm
schedule:
  daily_at: "07:45"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("KPI_SERVER_PORT", "9999")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	// Environment beats file, file beats defaults.
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "07:45", cfg.Schedule.DailyAt)
	assert.Equal(t, "15:10", cfg.Schedule.DecisionAt)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "valid with in-memory store",
			mutate:  func(c *config.Config) { c.Database.InMemory = true },
			wantErr: "",
		},
		{
			name:    "missing database host",
			mutate:  func(c *config.Config) {},
			wantErr: "database.host",
		},
		{
			name: "bad server port",
			mutate: func(c *config.Config) {
				c.Database.InMemory = true
				c.Server.Port = 0
			},
			wantErr: "server port",
		},
		{
			name: "bad daily_at",
			mutate: func(c *config.Config) {
				c.Database.InMemory = true
				c.Schedule.DailyAt = "25:00"
			},
			wantErr: "daily_at",
		},
		{
			name: "bad timezone",
			mutate: func(c *config.Config) {
				c.Database.InMemory = true
				c.Schedule.Timezone = "Mars/Olympus"
			},
			wantErr: "timezone",
		},
		{
			name: "bad logging output",
			mutate: func(c *config.Config) {
				c.Database.InMemory = true
				c.Logging.Output = "syslog"
			},
			wantErr: "logging.output",
		},
		{
			name: "zero retries",
			mutate: func(c *config.Config) {
				c.Database.InMemory = true
				c.Database.MaxRetries = 0
			},
			wantErr: "max_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseClockTime(t *testing.T) {
	ct, err := config.ParseClockTime("08:10")
	require.NoError(t, err)
	assert.Equal(t, 8, ct.Hour)
	assert.Equal(t, 10, ct.Minute)

	for _, bad := range []string{"", "8", "24:00", "12:60", "abc", "-1:30"} {
		_, err := config.ParseClockTime(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
