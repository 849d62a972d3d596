package engine

import "time"

// ExitReason tags why a round trip ended.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "tp"
	ExitStopLoss   ExitReason = "sl"
	ExitSignal     ExitReason = "sell"
	ExitForced     ExitReason = "force_exit"
)

// Position is a single open exposure. TPPrice and SLPrice are fixed at entry
// and never recomputed for the life of the position.
type Position struct {
	Side       Side
	EntryPrice float64
	Qty        float64
	Notional   float64
	Leverage   int
	EntryFee   float64
	OpenTime   time.Time
	TPPrice    float64
	SLPrice    float64
}

// openPosition commits equity × ratio × leverage as notional at the bar's
// opening price, debits the entry fee from the balance immediately, and
// precomputes the TP/SL trigger prices from the configured ROE targets:
// price_delta = ratio × entry / leverage.
func openPosition(bar Bar, st *FinancialState, strat *Strategy, side Side, now time.Time) *Position {
	price := bar.Open
	notional := st.Equity * strat.InputAmountRatio * float64(strat.Leverage)
	qty := notional / price
	entryFee := notional * strat.feeRate(strat.EntryRole)

	st.Balance -= entryFee

	tpDelta := strat.TPRatio * price / float64(strat.Leverage)
	slDelta := strat.SLRatio * price / float64(strat.Leverage)
	var tp, sl float64
	if side == SideLong {
		tp = price + tpDelta
		sl = price - slDelta
	} else {
		tp = price - tpDelta
		sl = price + slDelta
	}

	return &Position{
		Side:       side,
		EntryPrice: price,
		Qty:        qty,
		Notional:   notional,
		Leverage:   strat.Leverage,
		EntryFee:   entryFee,
		OpenTime:   now,
		TPPrice:    tp,
		SLPrice:    sl,
	}
}

// UnrealizedPnL values the open exposure at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.Qty
	}
	return (p.EntryPrice - price) * p.Qty
}

// ROE is unrealized PnL over margin (notional / leverage).
func (p *Position) ROE(price float64) float64 {
	margin := p.Notional / float64(p.Leverage)
	if margin <= 0 {
		return 0
	}
	return p.UnrealizedPnL(price) / margin
}

// closePosition settles the round trip. TP and SL exits fill at the
// precomputed trigger price so the trade realizes exactly the configured ROE
// however far the bar overshot; every other reason fills at the bar's open.
// Balance receives the gross realized PnL minus the exit fee (the entry fee was
// debited at open); accumulated PnL receives the net of both fees.
func closePosition(bar Bar, pos *Position, st *FinancialState, strat *Strategy, now time.Time, reason ExitReason) Trade {
	var exitPrice float64
	switch reason {
	case ExitTakeProfit:
		exitPrice = pos.TPPrice
	case ExitStopLoss:
		exitPrice = pos.SLPrice
	default:
		exitPrice = bar.Open
	}

	exitFee := exitPrice * pos.Qty * strat.feeRate(strat.ExitRole)

	var realized float64
	if pos.Side == SideLong {
		realized = (exitPrice - pos.EntryPrice) * pos.Qty
	} else {
		realized = (pos.EntryPrice - exitPrice) * pos.Qty
	}
	net := realized - (pos.EntryFee + exitFee)

	st.Balance += realized - exitFee
	st.AccumulatedPnL += net
	st.UpdateEquity(0)

	roe := 0.0
	if pos.Leverage > 0 {
		roe = net / (pos.Notional / float64(pos.Leverage))
	}

	return Trade{
		Side:        pos.Side,
		EntryTime:   pos.OpenTime,
		EntryPrice:  pos.EntryPrice,
		ExitTime:    now,
		ExitPrice:   exitPrice,
		Qty:         pos.Qty,
		EntryFee:    pos.EntryFee,
		ExitFee:     exitFee,
		RealizedPnL: net,
		ROE:         roe,
		Reason:      reason,
	}
}
