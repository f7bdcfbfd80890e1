package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, domain.DefaultRiskConfig(), cfg.Risk())
	assert.Equal(t, "latest", cfg.Data.Date)
	assert.Equal(t, "market_data", cfg.Data.BaseName)
	assert.Equal(t, "rebalancing", cfg.Strategy.Name)
	assert.Equal(t, 60*time.Second, cfg.Engine().ExpiryGrace)
	assert.Zero(t, cfg.Engine().SlippageDelay)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
backtest:
  initial_capital: 250
  max_trade_size: 100
  safety_margin: 0
  slippage_delay_seconds: 1.5
  workers: 4
data:
  dir: /tmp/ticks
  date: "20251022"
strategy:
  name: hybrid
  stop_loss: 1.1
output:
  json: out/report.json
  table: true
log:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	eng := cfg.Engine()
	assert.Equal(t, 250.0, eng.InitialCapital)
	assert.Equal(t, 100.0, eng.Risk.MaxTradeSize)
	assert.Zero(t, eng.Risk.SafetyMargin, "explicit 0 disables the check")
	assert.Equal(t, 3.0, eng.Risk.MinLiquidityMultiplier)
	assert.Equal(t, 1500*time.Millisecond, eng.SlippageDelay)
	assert.Equal(t, 4, cfg.Backtest.Workers)
	assert.Equal(t, "/tmp/ticks", cfg.Data.Dir)
	assert.Equal(t, "20251022", cfg.Data.Date)
	assert.True(t, cfg.Output.Table)
	assert.Equal(t, "json", cfg.Log.Format)

	p := cfg.Params()
	assert.Equal(t, 1.1, p.StopLoss)
	assert.Equal(t, eng.Risk, p.Risk)
	assert.Equal(t, 0.05, p.TradeFraction)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POLYREPLAY_DATA_DIR", "/data/env")
	t.Setenv("POLYREPLAY_INITIAL_CAPITAL", "42.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "data:\n  dir: ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "/data/env", cfg.Data.Dir)
	assert.Equal(t, 42.5, cfg.Backtest.InitialCapital)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "backtest: [1, 2"))
	require.Error(t, err)

	t.Setenv("POLYREPLAY_INITIAL_CAPITAL", "lots")
	_, err = Load("")
	require.ErrorContains(t, err, "POLYREPLAY_INITIAL_CAPITAL")
}
