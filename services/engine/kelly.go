package engine

import (
	"context"
	"time"
)

// KellyFraction computes the bet-sizing ratio from the estimated win rate and
// the configured ROE payoff ratios, clamped to [0.1, 1.0]. A zero tp or sl
// ratio yields 0 instead of dividing by zero.
func KellyFraction(winRate, tpRatio, slRatio float64) float64 {
	if tpRatio == 0 || slRatio == 0 {
		return 0
	}
	k := (winRate*tpRatio - (1-winRate)*slRatio) / (tpRatio * slRatio)
	if k < 0.1 {
		k = 0.1
	}
	if k > 1.0 {
		k = 1.0
	}
	return k
}

// Optimizer picks a position-sizing ratio with a two-pass procedure: a fast
// pass estimates the win rate with a seed ratio, the Kelly fraction replaces
// the strategy's input amount ratio, and a full pass re-simulates. Each pass
// owns a fresh FinancialState; the estimate pass never leaks balance into the
// final run.
type Optimizer struct {
	// Scale is applied to the clamped Kelly fraction before the second pass.
	// The default of 0.5 sizes at half-Kelly.
	Scale float64
}

// OptimizerResult carries the final pass output plus the sizing decision.
type OptimizerResult struct {
	State       *FinancialState
	Trades      []Trade
	WinRate     float64
	SizingRatio float64
	Elapsed     time.Duration
}

// Run executes both passes. The strategy's InputAmountRatio is overwritten
// with the scaled Kelly fraction and left that way so callers can report the
// ratio that produced the result.
func (o Optimizer) Run(ctx context.Context, series *Series, strat *Strategy, initialBalance float64, side Side, obs Observer) (*OptimizerResult, error) {
	started := time.Now()

	scale := o.Scale
	if scale <= 0 {
		scale = 0.5
	}

	estState := NewFinancialState(initialBalance)
	estTrades, err := RunFast(ctx, series, strat, estState, side)
	if err != nil {
		return nil, err
	}
	winRate := WinRate(estTrades)

	strat.InputAmountRatio = KellyFraction(winRate, strat.TPRatio, strat.SLRatio) * scale

	finalState := NewFinancialState(initialBalance)
	trades, err := NewSimulator(strat, obs).Run(ctx, series, finalState, side)
	if err != nil {
		return nil, err
	}

	return &OptimizerResult{
		State:       finalState,
		Trades:      trades,
		WinRate:     winRate,
		SizingRatio: strat.InputAmountRatio,
		Elapsed:     time.Since(started),
	}, nil
}
