// Package sweep runs grids of strategy configurations through the two-pass
// sizing optimizer. Runs are independent: each owns its financial state and
// position, sharing only the read-only series, so they parallelize across a
// worker pool without locks.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"futures-backtest/services/engine"
	"futures-backtest/services/monitoring"
)

// Result is the outcome of one strategy run. Failures are recorded, never
// propagated: a bad configuration must not abort the rest of the sweep.
type Result struct {
	ID          string
	Strategy    string
	SizingRatio float64
	Balance     float64
	ROI         float64
	Trades      int
	WinRate     float64
	MaxDrawdown float64
	Elapsed     time.Duration
	Err         string
}

func (r Result) Success() bool { return r.Err == "" }

// Runner executes sweeps.
type Runner struct {
	InitialBalance float64
	Workers        int
	KellyScale     float64
	Timeout        time.Duration // per run; zero means unbounded
	Logger         *zap.Logger
}

// Run executes every strategy against the shared series and returns one
// Result per strategy, in input order.
func (r Runner) Run(ctx context.Context, series *engine.Series, strats []*engine.Strategy) []Result {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(strats))
	monitoring.SweepQueueDepth.Set(float64(len(strats)))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runOne(ctx, series, strats[i])
				monitoring.SweepQueueDepth.Dec()
			}
		}()
	}
	for i := range strats {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	ok := 0
	for _, res := range results {
		if res.Success() {
			ok++
		}
	}
	log.Info("sweep finished",
		zap.Int("strategies", len(strats)),
		zap.Int("succeeded", ok),
		zap.Int("failed", len(strats)-ok),
	)
	return results
}

func (r Runner) runOne(ctx context.Context, series *engine.Series, strat *engine.Strategy) Result {
	res := Result{ID: uuid.NewString(), Strategy: strat.Slug()}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	opt := engine.Optimizer{Scale: r.KellyScale}
	out, err := opt.Run(runCtx, series, strat, r.InitialBalance, engine.SideLong, nil)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	res.SizingRatio = out.SizingRatio
	res.Balance = out.State.Balance
	res.ROI = out.State.ROI()
	res.Trades = len(out.Trades)
	res.WinRate = engine.WinRate(out.Trades)
	res.MaxDrawdown = out.State.MaxDrawdown
	res.Elapsed = out.Elapsed
	return res
}

// Grid expands the cartesian product of sweep axes into strategies sharing
// one signal.
type Grid struct {
	Symbol    string
	Timeframe string
	Leverages []int
	TPRatios  []float64
	SLRatios  []float64

	MakerFee  float64
	TakerFee  float64
	SeedRatio float64
	Signal    engine.Signal
	EntryRole engine.Role
	ExitRole  engine.Role
	StartDate time.Time
	EndDate   time.Time
}

func (g Grid) Strategies() []*engine.Strategy {
	var out []*engine.Strategy
	for _, lev := range g.Leverages {
		for _, tp := range g.TPRatios {
			for _, sl := range g.SLRatios {
				out = append(out, &engine.Strategy{
					Symbol:           g.Symbol,
					Timeframe:        g.Timeframe,
					Leverage:         lev,
					MakerFee:         g.MakerFee,
					TakerFee:         g.TakerFee,
					TPRatio:          tp,
					SLRatio:          sl,
					InputAmountRatio: g.SeedRatio,
					Signal:           g.Signal,
					EntryRole:        g.EntryRole,
					ExitRole:         g.ExitRole,
					StartDate:        g.StartDate,
					EndDate:          g.EndDate,
				})
			}
		}
	}
	return out
}

// TopByROI returns the n most profitable successful results.
func TopByROI(results []Result, n int) []Result {
	ok := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Success() {
			ok = append(ok, r)
		}
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].ROI > ok[j].ROI })
	if n < len(ok) {
		ok = ok[:n]
	}
	return ok
}

// Line renders the result in the append-only results file format.
func (r Result) Line() string {
	if !r.Success() {
		return fmt.Sprintf("%s, ERROR, %s", r.Strategy, r.Err)
	}
	return fmt.Sprintf("%s, %.2f, %.2f, %.2f", r.Strategy, r.SizingRatio, r.Balance, r.ROI)
}
