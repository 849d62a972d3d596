package engine

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives run lifecycle events. All calls are advisory: the
// simulation never depends on an observer being present or on its behavior.
type Observer interface {
	OnRunStart(series *Series, strat *Strategy, state *FinancialState)
	OnBalanceSample(ts time.Time, balance float64)
	OnPositionOpen(ts time.Time, pos *Position, state *FinancialState)
	OnPositionClose(ts time.Time, trade Trade, state *FinancialState, reason ExitReason)
	OnBankruptcy(ts time.Time, state *FinancialState)
	OnRunEnd(state *FinancialState, trades []Trade, strat *Strategy, elapsed time.Duration)
}

// NopObserver discards every event; it is what the fast sizing pass runs with.
type NopObserver struct{}

func (NopObserver) OnRunStart(*Series, *Strategy, *FinancialState)                {}
func (NopObserver) OnBalanceSample(time.Time, float64)                            {}
func (NopObserver) OnPositionOpen(time.Time, *Position, *FinancialState)          {}
func (NopObserver) OnPositionClose(time.Time, Trade, *FinancialState, ExitReason) {}
func (NopObserver) OnBankruptcy(time.Time, *FinancialState)                       {}
func (NopObserver) OnRunEnd(*FinancialState, []Trade, *Strategy, time.Duration)   {}

// LogObserver emits structured lifecycle logs and keeps the balance history
// for downstream graphing.
type LogObserver struct {
	log *zap.Logger

	Timestamps []time.Time
	Balances   []float64
}

func NewLogObserver(log *zap.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnRunStart(series *Series, strat *Strategy, state *FinancialState) {
	first, last := series.Bars[0].Time, series.Bars[len(series.Bars)-1].Time
	o.log.Info("backtest started",
		zap.String("strategy", strat.Slug()),
		zap.Time("from", first),
		zap.Time("to", last),
		zap.Int("bars", len(series.Bars)),
		zap.Int("leverage", strat.Leverage),
		zap.Float64("initial_balance", state.InitialBalance),
		zap.Float64("input_amount_ratio", strat.InputAmountRatio),
		zap.Float64("tp_ratio", strat.TPRatio),
		zap.Float64("sl_ratio", strat.SLRatio),
	)
}

func (o *LogObserver) OnBalanceSample(ts time.Time, balance float64) {
	o.Timestamps = append(o.Timestamps, ts)
	o.Balances = append(o.Balances, balance)
}

func (o *LogObserver) OnPositionOpen(ts time.Time, pos *Position, state *FinancialState) {
	o.log.Info("position opened",
		zap.Time("ts", ts),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("qty", pos.Qty),
		zap.Float64("notional", pos.Notional),
		zap.Float64("tp_price", pos.TPPrice),
		zap.Float64("sl_price", pos.SLPrice),
		zap.Float64("entry_fee", pos.EntryFee),
		zap.Float64("balance", state.Balance),
		zap.Float64("equity", state.Equity),
	)
}

func (o *LogObserver) OnPositionClose(ts time.Time, trade Trade, state *FinancialState, reason ExitReason) {
	o.log.Info("position closed",
		zap.Time("ts", ts),
		zap.String("reason", string(reason)),
		zap.String("side", string(trade.Side)),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("qty", trade.Qty),
		zap.Float64("entry_fee", trade.EntryFee),
		zap.Float64("exit_fee", trade.ExitFee),
		zap.Float64("realized_pnl", trade.RealizedPnL),
		zap.Float64("roe_pct", trade.ROE*100),
		zap.Float64("balance", state.Balance),
		zap.Float64("equity", state.Equity),
		zap.Float64("accumulated_pnl", state.AccumulatedPnL),
	)
}

func (o *LogObserver) OnBankruptcy(ts time.Time, state *FinancialState) {
	o.log.Warn("bankruptcy, halting run",
		zap.Time("ts", ts),
		zap.Float64("balance", state.Balance),
		zap.Float64("equity", state.Equity),
		zap.Float64("accumulated_pnl", state.AccumulatedPnL),
	)
}

func (o *LogObserver) OnRunEnd(state *FinancialState, trades []Trade, strat *Strategy, elapsed time.Duration) {
	s := Summarize(trades)
	o.log.Info("backtest finished",
		zap.String("strategy", strat.Slug()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("final_balance", state.Balance),
		zap.Float64("final_equity", state.Equity),
		zap.Float64("accumulated_pnl", state.AccumulatedPnL),
		zap.Float64("max_drawdown", state.MaxDrawdown),
		zap.Float64("roi_pct", state.ROI()),
		zap.Int("trades", s.TotalTrades),
		zap.Int("tp_exits", s.TPExits),
		zap.Int("sl_exits", s.SLExits),
		zap.Int("forced_exits", s.ForcedExits),
		zap.String("win_rate", s.WinRate.StringFixed(4)),
		zap.String("profit_factor", s.ProfitFactor.StringFixed(2)),
	)
}
