package engine

import (
	"fmt"
	"time"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

type Role string

const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
)

// Signal is a pair of pure predicates over a single bar. Buy is evaluated
// against the bar preceding the entry bar; Sell against the current bar.
// Predicates must tolerate NaN indicator values.
type Signal struct {
	Buy         func(Bar) bool
	Sell        func(Bar) bool
	Description string
}

// Strategy holds the immutable parameters of one backtest run. The only field
// the engine ever rewrites is InputAmountRatio, which the Kelly optimizer
// overwrites between its two passes.
type Strategy struct {
	Symbol    string
	Timeframe string
	Leverage  int

	MakerFee float64
	TakerFee float64

	// TPRatio and SLRatio are target return-on-equity fractions, not raw
	// price moves.
	TPRatio float64
	SLRatio float64

	// InputAmountRatio is the fraction of current equity committed as margin.
	InputAmountRatio float64

	Signal    Signal
	EntryRole Role
	ExitRole  Role

	StartDate time.Time
	EndDate   time.Time
}

// Validate rejects configurations that would produce degenerate arithmetic
// (zero notional, NaN trigger prices, divide-by-zero ROE).
func (s *Strategy) Validate() error {
	if s.Leverage <= 0 {
		return fmt.Errorf("%w: leverage %d", ErrInvalidStrategy, s.Leverage)
	}
	if s.MakerFee < 0 || s.TakerFee < 0 {
		return fmt.Errorf("%w: negative fee rate", ErrInvalidStrategy)
	}
	if s.TPRatio <= 0 || s.SLRatio <= 0 {
		return fmt.Errorf("%w: tp_ratio and sl_ratio must be positive", ErrInvalidStrategy)
	}
	if s.InputAmountRatio <= 0 || s.InputAmountRatio > 1 {
		return fmt.Errorf("%w: input_amount_ratio %v outside (0,1]", ErrInvalidStrategy, s.InputAmountRatio)
	}
	if s.Signal.Buy == nil || s.Signal.Sell == nil {
		return fmt.Errorf("%w: missing signal predicate", ErrInvalidStrategy)
	}
	if s.EntryRole != RoleMaker && s.EntryRole != RoleTaker {
		return fmt.Errorf("%w: entry role %q", ErrInvalidStrategy, s.EntryRole)
	}
	if s.ExitRole != RoleMaker && s.ExitRole != RoleTaker {
		return fmt.Errorf("%w: exit role %q", ErrInvalidStrategy, s.ExitRole)
	}
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidStrategy)
	}
	return nil
}

func (s *Strategy) feeRate(role Role) float64 {
	if role == RoleMaker {
		return s.MakerFee
	}
	return s.TakerFee
}

// InstID maps a spot symbol to its OKX perpetual swap instrument ID.
func (s *Strategy) InstID() (string, error) {
	switch s.Symbol {
	case "BTCUSDT":
		return "BTC-USDT-SWAP", nil
	case "ETHUSDT":
		return "ETH-USDT-SWAP", nil
	}
	return "", fmt.Errorf("%w: no instrument mapping for %q", ErrInvalidStrategy, s.Symbol)
}

// Slug is a filesystem-safe identity used for result files and log names.
func (s *Strategy) Slug() string {
	return fmt.Sprintf("%s_%s_%s_%s_%s_leverage_%d_tp_%g_sl_%g",
		s.Signal.Description, s.Symbol, s.Timeframe,
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"),
		s.Leverage, s.TPRatio*100, s.SLRatio*100)
}

// Info renders the run parameters for report headers.
func (s *Strategy) Info() string {
	return fmt.Sprintf(`Ticker: %s
Interval: %s
Leverage: %dx
Maker fee: %g%%
Taker fee: %g%%
TP ROE: %g%%
SL ROE: -%g%%
Input amount ratio: %g%%
Period: %s ~ %s`,
		s.Symbol, s.Timeframe, s.Leverage,
		s.MakerFee*100, s.TakerFee*100,
		s.TPRatio*100, s.SLRatio*100,
		s.InputAmountRatio*100,
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
}
