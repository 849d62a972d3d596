package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinRate(t *testing.T) {
	assert.Zero(t, WinRate(nil))
	trades := []Trade{
		{RealizedPnL: 10},
		{RealizedPnL: -4},
		{RealizedPnL: 6},
		{RealizedPnL: 0},
	}
	assert.InDelta(t, 0.5, WinRate(trades), 1e-9)
}

func TestSummarize(t *testing.T) {
	trades := []Trade{
		{RealizedPnL: 100, Reason: ExitTakeProfit},
		{RealizedPnL: 50, Reason: ExitTakeProfit},
		{RealizedPnL: -30, Reason: ExitStopLoss},
		{RealizedPnL: -10, Reason: ExitForced},
		{RealizedPnL: 20, Reason: ExitSignal},
	}
	s := Summarize(trades)

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 3, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 2, s.TPExits)
	assert.Equal(t, 1, s.SLExits)
	assert.Equal(t, 1, s.ForcedExits)
	assert.Equal(t, 1, s.SignalExits)

	assert.Equal(t, "0.6000", s.WinRate.StringFixed(4))
	assert.Equal(t, "130", s.NetPnL.String())
	// avg win (170/3) over |avg loss| (20)
	assert.Equal(t, "2.83", s.ProfitFactor.StringFixed(2))
	assert.Equal(t, "26", s.Expectancy.String())
}

func TestSummarizeEmptyAndOneSided(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	onlyWins := Summarize([]Trade{{RealizedPnL: 5, Reason: ExitTakeProfit}})
	// No losses: profit factor stays zero rather than dividing by zero.
	assert.True(t, onlyWins.ProfitFactor.IsZero())
	assert.Equal(t, 1, onlyWins.Wins)
}
