// Package indicators enriches a candle series with the technical indicator
// columns the signal predicates consume: MACD(12,26,9), RSI(14), Bollinger
// bands (20, 2σ), SMA(20), EMA(20), and the first difference of each.
package indicators

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"futures-backtest/services/engine"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	rsiPeriod  = 14
	bandPeriod = 20
	maPeriod   = 20

	// First index at which every primary indicator has a defined value.
	// MACD needs (slow-1)+(signal-1) bars of history and dominates.
	warmupBars = macdSlow - 1 + macdSignal - 1
)

// Enrich computes all indicator columns in place and trims the warmup head so
// every remaining bar carries a full indicator set. Difference columns are
// computed before the trim, so the first kept bar already has valid deltas.
func Enrich(s *engine.Series) error {
	if len(s.Bars) <= warmupBars {
		return fmt.Errorf("indicators: need more than %d bars, got %d", warmupBars, len(s.Bars))
	}

	closes := make([]float64, len(s.Bars))
	volumes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	macd, macdSig, macdHist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	rsi := talib.Rsi(closes, rsiPeriod)
	bbUpper, bbMiddle, bbLower := talib.BBands(closes, bandPeriod, 2, 2, talib.SMA)
	sma := talib.Sma(closes, maPeriod)
	ema := talib.Ema(closes, maPeriod)

	cols := map[string][]float64{
		"macd":        withWarmup(macd, warmupBars),
		"macd_signal": withWarmup(macdSig, warmupBars),
		"macd_hist":   withWarmup(macdHist, warmupBars),
		"rsi":         withWarmup(rsi, rsiPeriod),
		"bb_upper":    withWarmup(bbUpper, bandPeriod-1),
		"bb_middle":   withWarmup(bbMiddle, bandPeriod-1),
		"bb_lower":    withWarmup(bbLower, bandPeriod-1),
		"sma_20":      withWarmup(sma, maPeriod-1),
		"ema_20":      withWarmup(ema, maPeriod-1),
	}
	cols["close_diff"] = diff(closes)
	cols["volume_diff"] = diff(volumes)
	for _, name := range []string{"macd", "macd_signal", "macd_hist", "rsi", "bb_upper", "bb_middle", "bb_lower", "sma_20", "ema_20"} {
		cols[name+"_diff"] = diff(cols[name])
	}

	for i := range s.Bars {
		if s.Bars[i].Fields == nil {
			s.Bars[i].Fields = make(map[string]float64, len(cols))
		}
		for name, values := range cols {
			s.Bars[i].Fields[name] = values[i]
		}
	}

	s.Bars = s.Bars[warmupBars:]
	return nil
}

// withWarmup replaces the indicator's undefined head (which go-talib fills
// with zeros) with NaN so missing values are distinguishable from real zeros.
func withWarmup(v []float64, warmup int) []float64 {
	for i := 0; i < warmup && i < len(v); i++ {
		v[i] = math.NaN()
	}
	return v
}

func diff(v []float64) []float64 {
	out := make([]float64, len(v))
	out[0] = math.NaN()
	for i := 1; i < len(v); i++ {
		out[i] = v[i] - v[i-1]
	}
	return out
}
