package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable summary of one completed round trip. RealizedPnL and
// ROE are net of both fees.
type Trade struct {
	Side        Side
	EntryTime   time.Time
	EntryPrice  float64
	ExitTime    time.Time
	ExitPrice   float64
	Qty         float64
	EntryFee    float64
	ExitFee     float64
	RealizedPnL float64
	ROE         float64
	Reason      ExitReason
}

// WinRate returns the fraction of trades with positive net PnL, 0 when there
// are no trades.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// Summary aggregates a completed run's trades.
type Summary struct {
	TotalTrades  int
	Wins         int
	Losses       int
	TPExits      int
	SLExits      int
	ForcedExits  int
	SignalExits  int
	WinRate      decimal.Decimal
	NetPnL       decimal.Decimal
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	ProfitFactor decimal.Decimal
	Expectancy   decimal.Decimal
}

// Summarize computes per-reason counts and the win/loss statistics downstream
// reports are built from. ProfitFactor is |avg win / avg loss| and stays zero
// when either side is empty.
func Summarize(trades []Trade) Summary {
	s := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	net := decimal.Zero
	for _, t := range trades {
		pnl := decimal.NewFromFloat(t.RealizedPnL)
		net = net.Add(pnl)
		switch {
		case t.RealizedPnL > 0:
			s.Wins++
			grossWin = grossWin.Add(pnl)
		case t.RealizedPnL < 0:
			s.Losses++
			grossLoss = grossLoss.Add(pnl)
		}
		switch t.Reason {
		case ExitTakeProfit:
			s.TPExits++
		case ExitStopLoss:
			s.SLExits++
		case ExitForced:
			s.ForcedExits++
		default:
			s.SignalExits++
		}
	}

	total := decimal.NewFromInt(int64(len(trades)))
	s.NetPnL = net
	s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(total)
	if s.Wins > 0 {
		s.AvgWin = grossWin.Div(decimal.NewFromInt(int64(s.Wins)))
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(s.Losses)))
	}
	if s.Wins > 0 && s.Losses > 0 && !s.AvgLoss.IsZero() {
		s.ProfitFactor = s.AvgWin.Div(s.AvgLoss).Abs()
	}
	s.Expectancy = net.Div(total)
	return s
}
