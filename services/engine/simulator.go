package engine

import (
	"context"
	"time"
)

// bankruptcyRatio is the balance floor, as a fraction of the initial balance,
// below which a run halts.
const bankruptcyRatio = 0.01

// Simulator drives the bar-by-bar position state machine for one strategy.
// A Simulator (and the FinancialState it mutates) belongs to a single run;
// parallel runs each construct their own.
type Simulator struct {
	strat *Strategy
	obs   Observer
}

// NewSimulator builds the full variant when obs is non-nil and the fast
// variant otherwise. Both execute the identical state machine and produce the
// same trade sequence for the same inputs.
func NewSimulator(strat *Strategy, obs Observer) *Simulator {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Simulator{strat: strat, obs: obs}
}

// Run simulates the strategy over the series window, mutating state and
// returning completed trades in order. The buy predicate is evaluated on the
// previous bar and executed at the current bar's open; exits are evaluated on
// the current bar. Cancellation is honored at bar granularity.
func (s *Simulator) Run(ctx context.Context, series *Series, state *FinancialState, side Side) ([]Trade, error) {
	started := time.Now()

	if err := s.strat.Validate(); err != nil {
		return nil, err
	}

	win := series.Window(s.strat.StartDate, s.strat.EndDate)
	win.Normalize()
	bars := win.Bars
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	s.obs.OnRunStart(win, s.strat, state)

	var pos *Position
	var trades []Trade

	// Bar 0 is skipped: there is no predecessor to evaluate the buy
	// predicate against.
	for i := 1; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return trades, err
		}
		prev, cur := bars[i-1], bars[i]

		s.obs.OnBalanceSample(cur.Time, state.Balance)

		if pos == nil && s.strat.Signal.Buy(prev) && validPrice(cur.Open) {
			pos = openPosition(cur, state, s.strat, side, cur.Time)
			s.obs.OnPositionOpen(cur.Time, pos, state)
		}

		// A position opened this bar can close on the same bar, so the
		// trigger check runs unconditionally while holding.
		if pos != nil {
			if touch := resolveTouch(cur, pos); touch != touchNone {
				reason := ExitStopLoss
				if touch == touchTP {
					reason = ExitTakeProfit
				}
				t := closePosition(cur, pos, state, s.strat, cur.Time, reason)
				trades = append(trades, t)
				s.obs.OnPositionClose(cur.Time, t, state, reason)
				pos = nil
			}
		}

		if pos != nil && s.strat.Signal.Sell(cur) {
			t := closePosition(cur, pos, state, s.strat, cur.Time, ExitSignal)
			trades = append(trades, t)
			s.obs.OnPositionClose(cur.Time, t, state, ExitSignal)
			pos = nil
		}

		if state.Balance < state.InitialBalance*bankruptcyRatio {
			s.obs.OnBankruptcy(cur.Time, state)
			break
		}
	}

	if pos != nil {
		last := bars[len(bars)-1]
		t := closePosition(last, pos, state, s.strat, last.Time, ExitForced)
		trades = append(trades, t)
		s.obs.OnPositionClose(last.Time, t, state, ExitForced)
	}

	s.obs.OnBalanceSample(bars[len(bars)-1].Time, state.Balance)
	s.obs.OnRunEnd(state, trades, s.strat, time.Since(started))

	return trades, nil
}

// RunFast executes the identical state machine without observer callbacks. It
// exists to cheaply estimate the win rate for position sizing.
func RunFast(ctx context.Context, series *Series, strat *Strategy, state *FinancialState, side Side) ([]Trade, error) {
	return NewSimulator(strat, nil).Run(ctx, series, state, side)
}
