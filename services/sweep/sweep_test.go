package sweep

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-backtest/services/engine"
)

func trendSeries(n int) *engine.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]engine.Bar, n)
	price := 100.0
	for i := range bars {
		next := price * 1.002
		bars[i] = engine.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   next * 1.001,
			Low:    price * 0.999,
			Close:  next,
			Volume: 1000,
		}
		price = next
	}
	return &engine.Series{Symbol: "BTCUSDT", Timeframe: "1m", Bars: bars}
}

func testGrid() Grid {
	return Grid{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Leverages: []int{5, 10},
		TPRatios:  []float64{0.3, 0.5},
		SLRatios:  []float64{0.2},
		TakerFee:  0.0005,
		SeedRatio: 0.5,
		Signal: engine.Signal{
			Buy:         func(b engine.Bar) bool { return true },
			Sell:        func(b engine.Bar) bool { return false },
			Description: "always_buy",
		},
		EntryRole: engine.RoleTaker,
		ExitRole:  engine.RoleTaker,
	}
}

func TestGridStrategies(t *testing.T) {
	strats := testGrid().Strategies()
	require.Len(t, strats, 4)

	seen := map[string]bool{}
	for _, s := range strats {
		require.NoError(t, s.Validate())
		seen[s.Slug()] = true
	}
	assert.Len(t, seen, 4, "every combination yields a distinct slug")
}

func TestRunnerAllSucceed(t *testing.T) {
	strats := testGrid().Strategies()
	r := Runner{InitialBalance: 1_000_000, Workers: 4}
	results := r.Run(context.Background(), trendSeries(200), strats)

	require.Len(t, results, len(strats))
	for i, res := range results {
		assert.True(t, res.Success(), res.Err)
		assert.Equal(t, strats[i].Slug(), res.Strategy, "results keep input order")
		assert.NotEmpty(t, res.ID)
		assert.Greater(t, res.Trades, 0)
		assert.False(t, math.IsNaN(res.ROI))
	}
}

func TestRunnerIsolatesFailures(t *testing.T) {
	grid := testGrid()
	strats := grid.Strategies()
	bad := *strats[0]
	bad.Leverage = 0
	strats = append([]*engine.Strategy{&bad}, strats...)

	r := Runner{InitialBalance: 1_000_000, Workers: 2}
	results := r.Run(context.Background(), trendSeries(200), strats)

	require.Len(t, results, len(strats))
	assert.False(t, results[0].Success())
	for _, res := range results[1:] {
		assert.True(t, res.Success(), res.Err)
	}
}

func TestTopByROI(t *testing.T) {
	results := []Result{
		{Strategy: "a", ROI: 5},
		{Strategy: "bad", Err: "boom", ROI: 99},
		{Strategy: "b", ROI: 12},
		{Strategy: "c", ROI: -3},
	}
	top := TopByROI(results, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Strategy)
	assert.Equal(t, "a", top[1].Strategy)
}

func TestAppendResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")
	first := []Result{{Strategy: "s1", SizingRatio: 0.25, Balance: 1100, ROI: 10}}
	second := []Result{{Strategy: "s2", Err: "series is empty"}}

	require.NoError(t, AppendResults(path, first))
	require.NoError(t, AppendResults(path, second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "s1, 0.25, 1100.00, 10.00", lines[0])
	assert.Equal(t, "s2, ERROR, series is empty", lines[1])
}
