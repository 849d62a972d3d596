package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-backtest/services/engine"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTemp(t, "btc.csv", `timestamp,open,high,low,close,volume,rsi,macd
2023-01-01 00:00:00,100,101,99,100.5,12.5,28.1,-0.4
2023-01-01 04:00:00,100.5,102,100,101,13.0,31.0,bad
2023-01-01 00:00:00,999,999,999,999,1,1,1
`)
	s, err := LoadCSV(path, "BTCUSDT", "4h")
	require.NoError(t, err)

	// Duplicate timestamp keeps the first row.
	require.Len(t, s.Bars, 2)
	assert.Equal(t, 100.0, s.Bars[0].Open)
	assert.InDelta(t, 28.1, s.Bars[0].Field("rsi"), 1e-9)

	// Invalid numeric cells coerce to NaN, not an error.
	assert.True(t, math.IsNaN(s.Bars[1].Field("macd")))
}

func TestLoadCSVWithBOMAndMillisTimestamps(t *testing.T) {
	path := writeTemp(t, "bom.csv", "\uFEFFtimestamp,open,high,low,close,volume\n1672531200000,100,101,99,100,5\n")
	s, err := LoadCSV(path, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.Len(t, s.Bars, 1)
	assert.Equal(t, 2023, s.Bars[0].Time.Year())
}

func TestLoadCSVRejectsEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.csv", "timestamp,open,high,low,close,volume\n")
	_, err := LoadCSV(path, "BTCUSDT", "1h")
	assert.Error(t, err)
}

func TestCacheLoadsOnce(t *testing.T) {
	c := NewCache()
	calls := 0
	loader := func() (*engine.Series, error) {
		calls++
		return &engine.Series{Symbol: "BTCUSDT"}, nil
	}

	first, err := c.Load("BTCUSDT", "4h", loader)
	require.NoError(t, err)
	second, err := c.Load("BTCUSDT", "4h", loader)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	c := NewCache()
	boom := errors.New("boom")
	_, err := c.Load("ETHUSDT", "1h", func() (*engine.Series, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	s, err := c.Load("ETHUSDT", "1h", func() (*engine.Series, error) {
		return &engine.Series{Symbol: "ETHUSDT"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", s.Symbol)
}
