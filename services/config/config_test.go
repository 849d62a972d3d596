package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 1_000_000.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, 0.5, cfg.Backtest.KellyScale)
	assert.Equal(t, "localhost:9000", cfg.ClickHouse.Addr)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
environment: prod
server:
  http_port: 9999
backtest:
  initial_balance: 50000
  workers: 16
okx:
  api_key: k
  secret_key: s
  passphrase: p
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 50000.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, 16, cfg.Backtest.Workers)
	assert.Equal(t, "k", cfg.OKX.APIKey)
	// untouched keys keep defaults
	assert.Equal(t, 0.5, cfg.Backtest.KellyScale)
}

func TestLoadRejectsBadBalance(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("backtest:\n  initial_balance: -5\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial_balance")
}
