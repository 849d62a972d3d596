// Command resample_csv aggregates a candle CSV into a wider timeframe, for
// example 5m into 15m. Output keeps only OHLCV; recompute indicators on the
// resampled file before backtesting.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"futures-backtest/services/dataset"
)

func main() {
	var (
		in     = flag.String("in", "", "input CSV (required)")
		out    = flag.String("out", "", "output CSV path (required)")
		symbol = flag.String("symbol", "BTCUSDT", "symbol")
		src    = flag.String("src", "5m", "source timeframe label")
		dst    = flag.String("dst", "15m", "target timeframe label")
		width  = flag.Duration("width", 15*time.Minute, "target bucket width")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	series, err := dataset.LoadCSV(*in, *symbol, *src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	resampled, err := dataset.Resample(series, *width, *dst)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resample:", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "timestamp,open,high,low,close,volume")
	for _, b := range resampled.Bars {
		fmt.Fprintf(w, "%d,%.8f,%.8f,%.8f,%.8f,%.8f\n",
			b.Time.UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d %s bars from %d %s bars to %s\n",
		len(resampled.Bars), *dst, len(series.Bars), *src, *out)
}
