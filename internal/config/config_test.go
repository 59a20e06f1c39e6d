package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cuecall.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		// venue-floor box
		"udp_addr": ":7700",
		"db_path": "/var/lib/cuecall/show.db",
		"log_format": "json",
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7700", cfg.UDPAddr)
	assert.Equal(t, "/var/lib/cuecall/show.db", cfg.DBPath)
	assert.Equal(t, "json", cfg.LogFormat)
	// Untouched fields keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1, cfg.TickSeconds)
	assert.Equal(t, 30, cfg.ForceResyncSeconds)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadRejectsBadFormat(t *testing.T) {
	path := writeConfig(t, `{"log_format": "xml"}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"http_addr": `)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestIntervalAccessors(t *testing.T) {
	path := writeConfig(t, `{"tick_seconds": 2, "resync_seconds": 5, "force_resync_seconds": 60}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2s", cfg.TickInterval().String())
	assert.Equal(t, "5s", cfg.ResyncInterval().String())
	assert.Equal(t, "1m0s", cfg.ForceResyncInterval().String())
}
