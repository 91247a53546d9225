package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	raw := `
server:
  host: 127.0.0.1
  port: 8080
database:
  host: localhost
  port: 5432
  user: bonappetit
  password: secret
  dbname: bonappetit
  sslmode: disable
daemon:
  wakeup_interval_ms: 60000
  pairing_timeout_ms: 300000
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Daemon.WakeupInterval())
	assert.Equal(t, 5*time.Minute, cfg.Daemon.PairingTimeout())
	assert.Equal(t,
		"host=localhost port=5432 user=bonappetit password=secret dbname=bonappetit sslmode=disable",
		cfg.Database.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
