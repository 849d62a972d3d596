package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-backtest/services/engine"
)

func sineSeries(n int) *engine.Series {
	s := &engine.Series{Symbol: "BTCUSDT", Timeframe: "4h"}
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100 + 10*math.Sin(float64(i)/5)
		s.Bars = append(s.Bars, engine.Bar{
			Time: t0.Add(time.Duration(i) * 4 * time.Hour),
			Open: price, High: price + 1, Low: price - 1, Close: price,
			Volume: 10,
		})
	}
	return s
}

func TestEnrichAddsAllColumns(t *testing.T) {
	s := sineSeries(120)
	require.NoError(t, Enrich(s))

	// Warmup rows are trimmed from the head.
	assert.Len(t, s.Bars, 120-warmupBars)

	primary := []string{
		"macd", "macd_signal", "macd_hist", "rsi",
		"bb_upper", "bb_middle", "bb_lower", "sma_20", "ema_20",
	}
	first := s.Bars[0]
	for _, name := range primary {
		assert.Falsef(t, math.IsNaN(first.Field(name)), "column %s should be defined after warmup trim", name)
	}

	// Difference columns are defined from the second kept bar onward; the
	// first kept bar may still border the warmup region.
	diffs := []string{
		"macd_diff", "rsi_diff", "bb_upper_diff", "sma_20_diff", "ema_20_diff",
		"close_diff", "volume_diff",
	}
	second := s.Bars[1]
	for _, name := range diffs {
		assert.Falsef(t, math.IsNaN(second.Field(name)), "column %s should be defined past the warmup boundary", name)
	}

	// Bollinger invariant on a non-degenerate series.
	assert.Greater(t, first.Field("bb_upper"), first.Field("bb_lower"))
	rsi := first.Field("rsi")
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestEnrichRejectsShortSeries(t *testing.T) {
	assert.Error(t, Enrich(sineSeries(warmupBars)))
}

func TestDiffMatchesNeighbors(t *testing.T) {
	s := sineSeries(120)
	require.NoError(t, Enrich(s))

	for i := 1; i < 10; i++ {
		want := s.Bars[i].Close - s.Bars[i-1].Close
		assert.InDelta(t, want, s.Bars[i].Field("close_diff"), 1e-9)
	}
}
