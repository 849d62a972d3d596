// Command backtest runs a single strategy through the two-pass sizing
// optimizer over a CSV candle file and prints the trade summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"futures-backtest/services/config"
	"futures-backtest/services/dataset"
	"futures-backtest/services/engine"
	"futures-backtest/services/indicators"
	"futures-backtest/services/logging"
	"futures-backtest/strategies"
)

func main() {
	var (
		csvPath   = flag.String("csv", "", "candle CSV file (required)")
		symbol    = flag.String("symbol", "BTCUSDT", "symbol")
		timeframe = flag.String("timeframe", "4h", "timeframe")
		signalNm  = flag.String("signal", "rsi_reversal", "signal name: "+strings.Join(strategies.Names(), ", "))
		leverage  = flag.Int("leverage", 10, "leverage")
		tpRatio   = flag.Float64("tp", 1.8, "take profit ratio")
		slRatio   = flag.Float64("sl", 0.5, "stop loss ratio")
		seedRatio = flag.Float64("ratio", 0.5, "seed input amount ratio for the estimation pass")
		takerFee  = flag.Float64("taker-fee", 0.0005, "taker fee rate")
		makerFee  = flag.Float64("maker-fee", 0.0002, "maker fee rate")
		short     = flag.Bool("short", false, "simulate the short side")
		startStr  = flag.String("start", "", "start date (2006-01-02), empty for unbounded")
		endStr    = flag.String("end", "", "end date (2006-01-02), empty for unbounded")
		enrich    = flag.Bool("indicators", true, "compute indicator columns before the run")
	)
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	series, err := dataset.LoadCSV(*csvPath, *symbol, *timeframe)
	if err != nil {
		logger.Fatal("load candles", zap.Error(err))
	}
	if *enrich {
		if err := indicators.Enrich(series); err != nil {
			logger.Fatal("compute indicators", zap.Error(err))
		}
	}

	sig, err := strategies.ByName(*signalNm)
	if err != nil {
		logger.Fatal("resolve signal", zap.Error(err))
	}

	strat := &engine.Strategy{
		Symbol:           *symbol,
		Timeframe:        *timeframe,
		Leverage:         *leverage,
		MakerFee:         *makerFee,
		TakerFee:         *takerFee,
		TPRatio:          *tpRatio,
		SLRatio:          *slRatio,
		InputAmountRatio: *seedRatio,
		Signal:           sig,
		EntryRole:        engine.RoleTaker,
		ExitRole:         engine.RoleTaker,
	}
	if *startStr != "" {
		if strat.StartDate, err = time.Parse("2006-01-02", *startStr); err != nil {
			logger.Fatal("parse start date", zap.Error(err))
		}
	}
	if *endStr != "" {
		if strat.EndDate, err = time.Parse("2006-01-02", *endStr); err != nil {
			logger.Fatal("parse end date", zap.Error(err))
		}
	}

	side := engine.SideLong
	if *short {
		side = engine.SideShort
	}

	obs := engine.NewLogObserver(logger)
	opt := engine.Optimizer{Scale: cfg.Backtest.KellyScale}
	result, err := opt.Run(ctx, series, strat, cfg.Backtest.InitialBalance, side, obs)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	summary := engine.Summarize(result.Trades)
	fmt.Printf("strategy:      %s\n", strat.Slug())
	fmt.Printf("sizing ratio:  %.4f\n", result.SizingRatio)
	fmt.Printf("trades:        %d (tp %d / sl %d / sell %d / forced %d)\n",
		summary.TotalTrades, summary.TPExits, summary.SLExits, summary.SignalExits, summary.ForcedExits)
	fmt.Printf("win rate:      %s\n", summary.WinRate)
	fmt.Printf("net pnl:       %s\n", summary.NetPnL)
	fmt.Printf("profit factor: %s\n", summary.ProfitFactor)
	fmt.Printf("expectancy:    %s\n", summary.Expectancy)
	fmt.Printf("final balance: %.2f\n", result.State.Balance)
	fmt.Printf("roi:           %.2f%%\n", result.State.ROI())
	fmt.Printf("max drawdown:  %.4f\n", result.State.MaxDrawdown)
	fmt.Printf("elapsed:       %s\n", result.Elapsed)
}
