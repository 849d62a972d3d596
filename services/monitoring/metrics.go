// Package monitoring exposes the Prometheus metrics shared by the server
// and batch binaries.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BacktestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backtest_duration_seconds",
		Help:    "Wall clock time of a single backtest run",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"symbol", "timeframe"})

	BacktestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Completed backtest runs by outcome",
	}, []string{"symbol", "status"})

	TradesSimulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_trades_total",
		Help: "Simulated trades by exit reason",
	}, []string{"symbol", "reason"})

	CandlesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candles_loaded_total",
		Help: "Candles loaded into memory by source",
	}, []string{"source", "symbol"})

	SweepQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sweep_queue_depth",
		Help: "Strategy configurations waiting in the sweep queue",
	})
)
