// Command autotrade runs a signal live against OKX. Every timeframe tick it
// pulls recent candles from Binance, recomputes the indicators the signal
// reads, and opens or closes the swap position accordingly. Stop losses are
// placed on the exchange at entry; take profit and signal exits are checked
// here each tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"futures-backtest/services/binance"
	"futures-backtest/services/config"
	"futures-backtest/services/engine"
	"futures-backtest/services/indicators"
	"futures-backtest/services/logging"
	"futures-backtest/services/okx"
	"futures-backtest/strategies"
)

const lookbackBars = 200

type trader struct {
	strat   *engine.Strategy
	binance *binance.Client
	okx     *okx.Client
	log     *zap.Logger
	width   time.Duration
}

// tick runs one detection pass over the latest closed candle.
func (t *trader) tick(ctx context.Context) error {
	end := time.Now().UTC().Truncate(t.width)
	start := end.Add(-lookbackBars * t.width)
	series, err := t.binance.Download(ctx, t.strat.Symbol, t.strat.Timeframe, start, end)
	if err != nil {
		return fmt.Errorf("download candles: %w", err)
	}
	// Drop the still-forming candle so signals only see closed bars.
	if last := series.Bars[len(series.Bars)-1]; last.Time.Add(t.width).After(end) {
		series.Bars = series.Bars[:len(series.Bars)-1]
	}
	if len(series.Bars) == 0 {
		return fmt.Errorf("no closed candles for %s %s", t.strat.Symbol, t.strat.Timeframe)
	}
	if err := indicators.Enrich(series); err != nil {
		return fmt.Errorf("compute indicators: %w", err)
	}
	last := series.Bars[len(series.Bars)-1]

	instID, err := t.strat.InstID()
	if err != nil {
		return err
	}
	open, err := t.okx.HasPosition(ctx, instID)
	if err != nil {
		return fmt.Errorf("query position: %w", err)
	}

	if !open {
		if t.strat.Signal.Buy(last) {
			t.log.Info("buy signal", zap.String("inst_id", instID), zap.Time("bar", last.Time))
			_, err := t.okx.OpenWithRatio(ctx, instID, "isolated",
				t.strat.InputAmountRatio, t.strat.Leverage, "buy", t.strat.SLRatio)
			return err
		}
		t.log.Debug("no entry signal", zap.Time("bar", last.Time))
		return nil
	}

	positions, err := t.okx.Positions(ctx, instID)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	if len(positions) > 0 {
		breakeven, err := strconv.ParseFloat(positions[0].BreakevenPrice, 64)
		if err == nil && breakeven > 0 {
			tpPrice := breakeven * (1 + t.strat.TPRatio/float64(t.strat.Leverage))
			if last.High >= tpPrice {
				t.log.Info("take profit reached",
					zap.Float64("tp_price", tpPrice),
					zap.Float64("bar_high", last.High),
				)
				return t.okx.ClosePositions(ctx, instID, "isolated")
			}
		}
	}
	if t.strat.Signal.Sell(last) {
		t.log.Info("sell signal", zap.String("inst_id", instID), zap.Time("bar", last.Time))
		return t.okx.ClosePositions(ctx, instID, "isolated")
	}
	return nil
}

func (t *trader) run(ctx context.Context) error {
	// Align the first tick to the next timeframe boundary.
	now := time.Now().UTC()
	next := now.Truncate(t.width).Add(t.width)
	t.log.Info("detector started",
		zap.String("symbol", t.strat.Symbol),
		zap.String("timeframe", t.strat.Timeframe),
		zap.Time("first_tick", next),
	)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := t.tick(ctx); err != nil {
			t.log.Error("tick failed", zap.Error(err))
		}
		next = next.Add(t.width)
		timer.Reset(time.Until(next))
	}
}

func timeframeWidth(tf string) (time.Duration, error) {
	switch tf {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported timeframe %q", tf)
}

func main() {
	var (
		symbol    = flag.String("symbol", "BTCUSDT", "symbol")
		timeframe = flag.String("timeframe", "4h", "timeframe")
		signalNm  = flag.String("signal", "rsi_reversal", "signal name: "+strings.Join(strategies.Names(), ", "))
		leverage  = flag.Int("leverage", 5, "leverage")
		tpRatio   = flag.Float64("tp", 1.8, "take profit ratio")
		slRatio   = flag.Float64("sl", 0.5, "stop loss ratio")
		ratio     = flag.Float64("ratio", 0.4, "fraction of available margin per entry")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.OKX.APIKey == "" || cfg.OKX.SecretKey == "" || cfg.OKX.Passphrase == "" {
		logger.Fatal("okx credentials missing; set okx.api_key, okx.secret_key, okx.passphrase")
	}

	sig, err := strategies.ByName(*signalNm)
	if err != nil {
		logger.Fatal("resolve signal", zap.Error(err))
	}
	width, err := timeframeWidth(*timeframe)
	if err != nil {
		logger.Fatal("resolve timeframe", zap.Error(err))
	}

	strat := &engine.Strategy{
		Symbol:           *symbol,
		Timeframe:        *timeframe,
		Leverage:         *leverage,
		TakerFee:         0.0005,
		TPRatio:          *tpRatio,
		SLRatio:          *slRatio,
		InputAmountRatio: *ratio,
		Signal:           sig,
		EntryRole:        engine.RoleTaker,
		ExitRole:         engine.RoleTaker,
	}
	if err := strat.Validate(); err != nil {
		logger.Fatal("invalid strategy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := &trader{
		strat:   strat,
		binance: binance.NewClient(cfg.Binance.BaseURL, cfg.Binance.Timeout, logger),
		okx: okx.NewClient(cfg.OKX.BaseURL, okx.Credentials{
			APIKey:     cfg.OKX.APIKey,
			SecretKey:  cfg.OKX.SecretKey,
			Passphrase: cfg.OKX.Passphrase,
			Simulated:  cfg.OKX.Simulated,
		}, logger),
		log:   logger,
		width: width,
	}
	if err := t.run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("detector stopped", zap.Error(err))
	}
}
