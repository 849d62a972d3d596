package engine

import "math"

// FinancialState is the mutable ledger of a single run. It is owned by exactly
// one simulation pass; concurrent runs each get their own instance.
type FinancialState struct {
	InitialBalance float64
	Balance        float64
	Equity         float64
	AccumulatedPnL float64
	// MaxDrawdown is a monotonically non-decreasing fraction of the initial
	// balance.
	MaxDrawdown float64
}

func NewFinancialState(initialBalance float64) *FinancialState {
	return &FinancialState{
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		Equity:         initialBalance,
	}
}

// Reset restores the ledger to its initial funding.
func (f *FinancialState) Reset() {
	f.Balance = f.InitialBalance
	f.Equity = f.InitialBalance
	f.AccumulatedPnL = 0
	f.MaxDrawdown = 0
}

// UpdateEquity recomputes equity as balance plus the given unrealized PnL and
// advances the drawdown high-water mark.
func (f *FinancialState) UpdateEquity(unrealizedPnL float64) {
	f.Equity = f.Balance + unrealizedPnL
	dd := (f.InitialBalance - f.Equity) / f.InitialBalance
	f.MaxDrawdown = math.Max(f.MaxDrawdown, math.Max(0, dd))
}

// ROI reports realized return on the initial balance in percent, rounded to
// two decimals.
func (f *FinancialState) ROI() float64 {
	return math.Round((f.Balance-f.InitialBalance)/f.InitialBalance*100*100) / 100
}
