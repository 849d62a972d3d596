package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenPositionArithmetic(t *testing.T) {
	strat := testStrategy() // leverage 10, ratio 0.5, taker 0.0005
	state := NewFinancialState(1_000_000)
	bar := Bar{Time: time.Now(), Open: 100}

	pos := openPosition(bar, state, strat, SideLong, bar.Time)

	// notional = equity × ratio × leverage = 1,000,000 × 0.5 × 10
	assert.InDelta(t, 5_000_000.0, pos.Notional, 1e-6)
	assert.InDelta(t, 50_000.0, pos.Qty, 1e-6)
	// entry fee = notional × taker, debited from balance at open
	assert.InDelta(t, 2_500.0, pos.EntryFee, 1e-6)
	assert.InDelta(t, 1_000_000-2_500, state.Balance, 1e-6)

	// TP/SL derive from ROE targets: delta = ratio × entry / leverage
	assert.InDelta(t, 105.0, pos.TPPrice, 1e-9)
	assert.InDelta(t, 95.0, pos.SLPrice, 1e-9)
}

func TestOpenPositionShortInvertsTriggers(t *testing.T) {
	strat := testStrategy()
	state := NewFinancialState(1_000_000)
	bar := Bar{Time: time.Now(), Open: 200}

	pos := openPosition(bar, state, strat, SideShort, bar.Time)

	assert.InDelta(t, 190.0, pos.TPPrice, 1e-9)
	assert.InDelta(t, 210.0, pos.SLPrice, 1e-9)
}

func TestClosePositionNetsBothFees(t *testing.T) {
	strat := testStrategy()
	state := NewFinancialState(1_000_000)
	entryBar := Bar{Time: time.Now(), Open: 100}
	pos := openPosition(entryBar, state, strat, SideLong, entryBar.Time)
	balanceAfterOpen := state.Balance

	exitBar := Bar{Time: entryBar.Time.Add(4 * time.Hour), Open: 100, High: 120, Low: 99, Close: 110}
	trade := closePosition(exitBar, pos, state, strat, exitBar.Time, ExitTakeProfit)

	// TP fill is the precomputed trigger, 105.
	assert.InDelta(t, 105.0, trade.ExitPrice, 1e-9)
	gross := (105.0 - 100.0) * pos.Qty
	exitFee := 105.0 * pos.Qty * strat.TakerFee
	assert.InDelta(t, exitFee, trade.ExitFee, 1e-6)
	assert.InDelta(t, gross-pos.EntryFee-exitFee, trade.RealizedPnL, 1e-6)

	// Balance receives gross minus exit fee; the entry fee went out at open.
	assert.InDelta(t, balanceAfterOpen+gross-exitFee, state.Balance, 1e-6)
	assert.InDelta(t, trade.RealizedPnL, state.AccumulatedPnL, 1e-6)
	// No position remains, so equity equals balance.
	assert.InDelta(t, state.Balance, state.Equity, 1e-9)
}

func TestTradeROEIsNetOverMargin(t *testing.T) {
	strat := testStrategy()
	state := NewFinancialState(1_000_000)
	entryBar := Bar{Time: time.Now(), Open: 100}
	pos := openPosition(entryBar, state, strat, SideLong, entryBar.Time)

	exitBar := Bar{Time: entryBar.Time.Add(4 * time.Hour), Open: 104}
	trade := closePosition(exitBar, pos, state, strat, exitBar.Time, ExitSignal)

	margin := pos.Notional / float64(pos.Leverage)
	assert.InDelta(t, trade.RealizedPnL/margin, trade.ROE, 1e-9)
}

func TestUnrealizedPnLBySide(t *testing.T) {
	long := &Position{Side: SideLong, EntryPrice: 100, Qty: 2, Notional: 1000, Leverage: 5}
	short := &Position{Side: SideShort, EntryPrice: 100, Qty: 2, Notional: 1000, Leverage: 5}

	assert.InDelta(t, 20.0, long.UnrealizedPnL(110), 1e-9)
	assert.InDelta(t, -20.0, short.UnrealizedPnL(110), 1e-9)
	assert.InDelta(t, 0.1, long.ROE(110), 1e-9)
}
