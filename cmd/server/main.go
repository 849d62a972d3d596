// Command server exposes the backtest engine over HTTP. Candle series come
// from ClickHouse and are cached in memory per symbol/timeframe.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"futures-backtest/services/config"
	"futures-backtest/services/dataset"
	"futures-backtest/services/engine"
	"futures-backtest/services/indicators"
	"futures-backtest/services/logging"
	"futures-backtest/services/monitoring"
	"futures-backtest/services/store"
	"futures-backtest/strategies"
)

type backtestRequest struct {
	Symbol           string  `json:"symbol" binding:"required"`
	Timeframe        string  `json:"timeframe" binding:"required"`
	Signal           string  `json:"signal" binding:"required"`
	Leverage         int     `json:"leverage" binding:"required"`
	TPRatio          float64 `json:"tp_ratio" binding:"required"`
	SLRatio          float64 `json:"sl_ratio" binding:"required"`
	InputAmountRatio float64 `json:"input_amount_ratio"`
	MakerFee         float64 `json:"maker_fee"`
	TakerFee         float64 `json:"taker_fee"`
	Side             string  `json:"side"`
	Start            string  `json:"start"`
	End              string  `json:"end"`
}

type backtestResponse struct {
	Strategy     string  `json:"strategy"`
	SizingRatio  float64 `json:"sizing_ratio"`
	Balance      float64 `json:"balance"`
	ROI          float64 `json:"roi"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Trades       int     `json:"trades"`
	WinRate      string  `json:"win_rate"`
	NetPnL       string  `json:"net_pnl"`
	ProfitFactor string  `json:"profit_factor"`
	Expectancy   string  `json:"expectancy"`
	ElapsedMs    int64   `json:"elapsed_ms"`
}

type server struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
	cache *dataset.Cache
}

func (s *server) loadSeries(ctx context.Context, symbol, timeframe string) (*engine.Series, error) {
	return s.cache.Load(symbol, timeframe, func() (*engine.Series, error) {
		series, err := s.store.LoadSeries(ctx, symbol, timeframe, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		monitoring.CandlesLoaded.WithLabelValues("clickhouse", symbol).Add(float64(len(series.Bars)))
		if err := indicators.Enrich(series); err != nil {
			return nil, err
		}
		return series, nil
	})
}

func (s *server) handleBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig, err := strategies.ByName(req.Signal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := engine.SideLong
	if strings.EqualFold(req.Side, string(engine.SideShort)) {
		side = engine.SideShort
	}
	ratio := req.InputAmountRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	takerFee := req.TakerFee
	if takerFee == 0 {
		takerFee = 0.0005
	}

	strat := &engine.Strategy{
		Symbol:           req.Symbol,
		Timeframe:        req.Timeframe,
		Leverage:         req.Leverage,
		MakerFee:         req.MakerFee,
		TakerFee:         takerFee,
		TPRatio:          req.TPRatio,
		SLRatio:          req.SLRatio,
		InputAmountRatio: ratio,
		Signal:           sig,
		EntryRole:        engine.RoleTaker,
		ExitRole:         engine.RoleTaker,
	}
	if req.Start != "" {
		if strat.StartDate, err = time.Parse("2006-01-02", req.Start); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start: " + err.Error()})
			return
		}
	}
	if req.End != "" {
		if strat.EndDate, err = time.Parse("2006-01-02", req.End); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end: " + err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	series, err := s.loadSeries(ctx, req.Symbol, req.Timeframe)
	if err != nil {
		s.log.Error("load series failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opt := engine.Optimizer{Scale: s.cfg.Backtest.KellyScale}
	result, err := opt.Run(ctx, series, strat, s.cfg.Backtest.InitialBalance, side, nil)
	if err != nil {
		monitoring.BacktestRuns.WithLabelValues(req.Symbol, "error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrInvalidStrategy) || errors.Is(err, engine.ErrEmptySeries) {
			status = http.StatusBadRequest
		}
		s.log.Error("backtest failed", zap.String("strategy", strat.Slug()), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	monitoring.BacktestRuns.WithLabelValues(req.Symbol, "ok").Inc()
	monitoring.BacktestDuration.WithLabelValues(req.Symbol, req.Timeframe).Observe(result.Elapsed.Seconds())
	summary := engine.Summarize(result.Trades)
	for _, t := range result.Trades {
		monitoring.TradesSimulated.WithLabelValues(req.Symbol, string(t.Reason)).Inc()
	}

	c.JSON(http.StatusOK, backtestResponse{
		Strategy:     strat.Slug(),
		SizingRatio:  result.SizingRatio,
		Balance:      result.State.Balance,
		ROI:          result.State.ROI(),
		MaxDrawdown:  result.State.MaxDrawdown,
		Trades:       summary.TotalTrades,
		WinRate:      summary.WinRate.String(),
		NetPnL:       summary.NetPnL.String(),
		ProfitFactor: summary.ProfitFactor.String(),
		Expectancy:   summary.Expectancy.String(),
		ElapsedMs:    result.Elapsed.Milliseconds(),
	})
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *server) routes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
		api.GET("/health", s.handleHealth)
		api.GET("/signals", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"signals": strategies.Names()})
		})
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func main() {
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

	srv := &server{cfg: cfg, log: logger, store: st, cache: dataset.NewCache()}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	srv.routes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: router,
	}
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
