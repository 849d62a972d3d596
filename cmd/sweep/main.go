// Command sweep runs a grid of leverage/tp/sl combinations for one signal in
// parallel and appends the outcomes to the results file.
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

	"go.uber.org/zap"

	"futures-backtest/services/config"
	"futures-backtest/services/dataset"
	"futures-backtest/services/engine"
	"futures-backtest/services/indicators"
	"futures-backtest/services/logging"
	"futures-backtest/services/sweep"
	"futures-backtest/strategies"
)

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var (
		csvPath   = flag.String("csv", "", "candle CSV file (required)")
		symbol    = flag.String("symbol", "BTCUSDT", "symbol")
		timeframe = flag.String("timeframe", "4h", "timeframe")
		signalNm  = flag.String("signal", "rsi_reversal", "signal name: "+strings.Join(strategies.Names(), ", "))
		leverages = flag.String("leverages", "5,10,20,50", "comma separated leverage values")
		tps       = flag.String("tps", "0.5,1.0,1.8", "comma separated take profit ratios")
		sls       = flag.String("sls", "0.1,0.3,0.5", "comma separated stop loss ratios")
		takerFee  = flag.Float64("taker-fee", 0.0005, "taker fee rate")
		topN      = flag.Int("top", 10, "print the N best results")
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

	levs, err := parseInts(*leverages)
	if err != nil {
		logger.Fatal("parse leverages", zap.Error(err))
	}
	tpVals, err := parseFloats(*tps)
	if err != nil {
		logger.Fatal("parse tps", zap.Error(err))
	}
	slVals, err := parseFloats(*sls)
	if err != nil {
		logger.Fatal("parse sls", zap.Error(err))
	}

	series, err := dataset.LoadCSV(*csvPath, *symbol, *timeframe)
	if err != nil {
		logger.Fatal("load candles", zap.Error(err))
	}
	if err := indicators.Enrich(series); err != nil {
		logger.Fatal("compute indicators", zap.Error(err))
	}

	sig, err := strategies.ByName(*signalNm)
	if err != nil {
		logger.Fatal("resolve signal", zap.Error(err))
	}

	grid := sweep.Grid{
		Symbol:    *symbol,
		Timeframe: *timeframe,
		Leverages: levs,
		TPRatios:  tpVals,
		SLRatios:  slVals,
		TakerFee:  *takerFee,
		SeedRatio: 0.5,
		Signal:    sig,
		EntryRole: engine.RoleTaker,
		ExitRole:  engine.RoleTaker,
	}
	strats := grid.Strategies()
	logger.Info("sweep starting",
		zap.Int("strategies", len(strats)),
		zap.Int("workers", cfg.Backtest.Workers),
		zap.String("signal", *signalNm),
	)

	runner := sweep.Runner{
		InitialBalance: cfg.Backtest.InitialBalance,
		Workers:        cfg.Backtest.Workers,
		KellyScale:     cfg.Backtest.KellyScale,
		Timeout:        cfg.Backtest.RunTimeout,
		Logger:         logger,
	}
	results := runner.Run(ctx, series, strats)

	if err := sweep.AppendResults(cfg.Backtest.ResultsFile, results); err != nil {
		logger.Error("append results", zap.Error(err))
	}

	fmt.Printf("top %d by ROI:\n", *topN)
	for i, r := range sweep.TopByROI(results, *topN) {
		fmt.Printf("%2d. %s ratio=%.4f balance=%.2f roi=%.2f%% trades=%d maxdd=%.4f\n",
			i+1, r.Strategy, r.SizingRatio, r.Balance, r.ROI, r.Trades, r.MaxDrawdown)
	}
}
