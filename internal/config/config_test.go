package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corosyncctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
metrics:
  listen: 127.0.0.1:9464
trace:
  enabled: true
cpg:
  group: ping
  guarantee: safe
loop:
  poll_interval: 50ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Listen)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "ping", cfg.Cpg.Group)
	assert.Equal(t, "safe", cfg.Cpg.Guarantee)
	assert.Equal(t, 50*time.Millisecond, cfg.Loop.PollInterval)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, "yes", cfg.Cfg.ShutdownReply)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"level", "log:\n  level: loud\n", "log.level"},
		{"format", "log:\n  format: xml\n", "log.format"},
		{"listen", "metrics:\n  listen: nope\n", "metrics.listen"},
		{"guarantee", "cpg:\n  guarantee: eventually\n", "cpg.guarantee"},
		{"reply", "cfg:\n  shutdown_reply: maybe\n", "cfg.shutdown_reply"},
		{"interval", "loop:\n  poll_interval: 0s\n", "loop.poll_interval"},
		{"group", "cpg:\n  group: " + strings.Repeat("g", 128) + "\n", "cpg.group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "log: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateRejectsNulInGroup(t *testing.T) {
	cfg := Default()
	cfg.Cpg.Group = "a\x00b"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUL")
}
