package strategies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"futures-backtest/services/engine"
)

func barWith(fields map[string]float64) engine.Bar {
	return engine.Bar{Fields: fields}
}

func TestRSIReversal(t *testing.T) {
	sig := RSIReversal(15, 85)

	assert.True(t, sig.Buy(barWith(map[string]float64{"rsi": 10})))
	assert.False(t, sig.Buy(barWith(map[string]float64{"rsi": 20})))
	assert.True(t, sig.Sell(barWith(map[string]float64{"rsi": 90})))
	assert.False(t, sig.Sell(barWith(map[string]float64{"rsi": 50})))
	assert.Equal(t, "buy_rsi_below_15_sell_rsi_above_85", sig.Description)
}

func TestRSIReversalIgnoresMissingValues(t *testing.T) {
	sig := RSIReversal(15, 85)

	// NaN comparisons are false either way: warmup bars never signal.
	assert.False(t, sig.Buy(barWith(map[string]float64{"rsi": math.NaN()})))
	assert.False(t, sig.Sell(barWith(nil)))
}

func TestMACDTurn(t *testing.T) {
	sig := MACDTurn()

	assert.True(t, sig.Buy(barWith(map[string]float64{"macd_hist": -1, "macd_hist_diff": 0.2})))
	assert.False(t, sig.Buy(barWith(map[string]float64{"macd_hist": -1, "macd_hist_diff": -0.2})))
	assert.True(t, sig.Sell(barWith(map[string]float64{"macd_hist": 1, "macd_hist_diff": -0.2})))
}

func TestBollingerFade(t *testing.T) {
	sig := BollingerFade()
	b := engine.Bar{Close: 90, Fields: map[string]float64{"bb_lower": 95, "bb_upper": 110}}
	assert.True(t, sig.Buy(b))
	assert.False(t, sig.Sell(b))
}
