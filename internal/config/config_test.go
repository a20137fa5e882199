package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Sink.Kind)
	assert.Equal(t, 2*time.Hour, cfg.Server.SessionTTL)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  session_ttl: 30m
log:
  level: debug
  format: console
sink:
  kind: sqlite
  path: /var/lib/desk/records.db
refdata:
  url: http://refdata.internal
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Sink.Kind)
	assert.Equal(t, "http://refdata.internal", cfg.RefData.URL)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SINK_KIND", "http")
	t.Setenv("SINK_URL", "http://backoffice.internal/api")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "http", cfg.Sink.Kind)
	assert.Equal(t, "http://backoffice.internal/api", cfg.Sink.URL)
}

func TestValidation(t *testing.T) {
	tests := map[string]string{
		"sqlite without path": "sink:\n  kind: sqlite\n",
		"http without url":    "sink:\n  kind: http\n",
		"unknown sink":        "sink:\n  kind: kafka\n",
		"bad level":           "log:\n  level: loud\n",
		"unknown key":         "colour: blue\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
