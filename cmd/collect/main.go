// Command collect downloads candles from Binance and stores them in
// ClickHouse for later backtests. Months already present are deduplicated by
// the ReplacingMergeTree schema, so re-running a range is safe.
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

	"futures-backtest/services/binance"
	"futures-backtest/services/config"
	"futures-backtest/services/logging"
	"futures-backtest/services/monitoring"
	"futures-backtest/services/store"
)

func main() {
	var (
		symbols    = flag.String("symbols", "BTCUSDT,ETHUSDT", "comma separated symbols")
		timeframes = flag.String("timeframes", "1m,5m,15m,1h,4h,1d", "comma separated timeframes")
		startStr   = flag.String("start", "", "start date (2006-01-02), default four years back")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Date(time.Now().Year()-4, 1, 1, 0, 0, 0, 0, time.UTC)
	if *startStr != "" {
		if start, err = time.Parse("2006-01-02", *startStr); err != nil {
			logger.Fatal("parse start date", zap.Error(err))
		}
	}

	st, err := store.New(ctx, store.Options{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	}, logger)
	if err != nil {
		logger.Fatal("connect clickhouse", zap.Error(err))
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	client := binance.NewClient(cfg.Binance.BaseURL, cfg.Binance.Timeout, logger)

	failed := 0
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		for _, tf := range strings.Split(*timeframes, ",") {
			tf = strings.TrimSpace(tf)
			logger.Info("collecting", zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Time("start", start))

			series, err := client.Download(ctx, symbol, tf, start, time.Time{})
			if err != nil {
				logger.Error("download failed",
					zap.String("symbol", symbol),
					zap.String("timeframe", tf),
					zap.Error(err),
				)
				failed++
				continue
			}
			monitoring.CandlesLoaded.WithLabelValues("binance", symbol).Add(float64(len(series.Bars)))

			if err := st.InsertBars(ctx, symbol, tf, series.Bars); err != nil {
				logger.Error("insert failed",
					zap.String("symbol", symbol),
					zap.String("timeframe", tf),
					zap.Error(err),
				)
				failed++
			}
		}
	}

	if failed > 0 {
		logger.Warn("collection finished with failures", zap.Int("failed", failed))
		os.Exit(1)
	}
	logger.Info("collection finished")
}
