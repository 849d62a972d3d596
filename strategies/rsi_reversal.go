// Package strategies holds the named signal definitions backtests and the
// live detector share. Every factory returns pure predicates over a single
// bar; predicates treat NaN indicator values as "no signal".
package strategies

import (
	"fmt"

	"futures-backtest/services/engine"
)

// RSIReversal buys when RSI drops below buyBelow and sells when it rises
// above sellAbove. NaN RSI (warmup or missing column) never signals.
func RSIReversal(buyBelow, sellAbove float64) engine.Signal {
	return engine.Signal{
		Buy:         func(b engine.Bar) bool { return b.Field("rsi") < buyBelow },
		Sell:        func(b engine.Bar) bool { return b.Field("rsi") > sellAbove },
		Description: fmt.Sprintf("buy_rsi_below_%g_sell_rsi_above_%g", buyBelow, sellAbove),
	}
}

// MACDTurn buys when the MACD histogram crosses up through zero momentum
// (negative histogram, rising) and sells on the mirrored condition.
func MACDTurn() engine.Signal {
	return engine.Signal{
		Buy: func(b engine.Bar) bool {
			return b.Field("macd_hist") < 0 && b.Field("macd_hist_diff") > 0
		},
		Sell: func(b engine.Bar) bool {
			return b.Field("macd_hist") > 0 && b.Field("macd_hist_diff") < 0
		},
		Description: "macd_hist_turn",
	}
}

// BollingerFade buys closes under the lower band and sells closes over the
// upper band.
func BollingerFade() engine.Signal {
	return engine.Signal{
		Buy:         func(b engine.Bar) bool { return b.Close < b.Field("bb_lower") },
		Sell:        func(b engine.Bar) bool { return b.Close > b.Field("bb_upper") },
		Description: "bollinger_fade",
	}
}
