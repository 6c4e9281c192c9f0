package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./data/leave.db", cfg.Database.Path)
	assert.Equal(t, logrus.InfoLevel, cfg.Log.Parsed)
	assert.Equal(t, time.Hour, cfg.Reporter.Interval)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Policy.AllowNegativeBalance)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  allowed_origins: ["https://hr.example.com"]
database:
  path: /tmp/leave.db
log:
  level: debug
policy:
  allow_negative_balance: true
reporter:
  enabled: false
  interval: 15m
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/leave.db", cfg.Database.Path)
	assert.Equal(t, logrus.DebugLevel, cfg.Log.Parsed)
	assert.True(t, cfg.Policy.AllowNegativeBalance)
	assert.False(t, cfg.Reporter.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Reporter.Interval)
	assert.True(t, cfg.Metrics.Enabled, "unset keys keep their defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("LEAVE_SERVER_PORT", "7070")
	t.Setenv("LEAVE_DB_PATH", ":memory:")
	t.Setenv("LEAVE_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LEAVE_METRICS_ENABLED", "false")
	t.Setenv("LEAVE_REPORTER_INTERVAL", "30s")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Reporter.Interval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad port", body: "server:\n  port: abc\n"},
		{name: "bad level", body: "log:\n  level: loud\n"},
		{name: "bad interval", body: "reporter:\n  interval: soon\n"},
		{name: "negative interval", body: "reporter:\n  interval: -5m\n"},
		{name: "negative interval env", env: map[string]string{"LEAVE_REPORTER_INTERVAL": "-5m"}},
		{name: "bad yaml", body: "server: [\n"},
		{name: "bad bool env", env: map[string]string{"LEAVE_REPORTER_ENABLED": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_NegativeReporterInterval(t *testing.T) {
	// GIVEN: an interval that would make the reporter's ticker panic
	t.Setenv("LEAVE_REPORTER_INTERVAL", "-5m")

	// WHEN
	cfg, err := Load("")

	// THEN
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "reporter.interval must be positive")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}
