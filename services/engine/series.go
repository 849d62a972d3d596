package engine

import (
	"math"
	"sort"
	"time"
)

// Bar is one row of an indicator-enriched candle series. OHLCV is numeric;
// indicator columns live in Fields and are opaque to the engine — only the
// Signal predicates interpret them. Missing values are NaN.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Fields map[string]float64
}

// Field returns a named indicator value, or NaN when the column is absent.
func (b Bar) Field(name string) float64 {
	if v, ok := b.Fields[name]; ok {
		return v
	}
	return math.NaN()
}

// Series is a chronologically ordered, duplicate-free candle series for one
// (symbol, timeframe).
type Series struct {
	Symbol    string
	Timeframe string
	Bars      []Bar
}

// Normalize sorts bars ascending by timestamp, drops zero-time rows and
// removes duplicate timestamps keeping the first occurrence.
func (s *Series) Normalize() {
	kept := s.Bars[:0]
	for _, b := range s.Bars {
		if b.Time.IsZero() {
			continue
		}
		kept = append(kept, b)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })
	out := kept[:0]
	var last time.Time
	for _, b := range kept {
		if len(out) > 0 && b.Time.Equal(last) {
			continue
		}
		out = append(out, b)
		last = b.Time
	}
	s.Bars = out
}

// Window returns the sub-series with timestamps in [start, end], both
// inclusive. A zero start or end leaves that side unbounded.
func (s *Series) Window(start, end time.Time) *Series {
	out := &Series{Symbol: s.Symbol, Timeframe: s.Timeframe}
	for _, b := range s.Bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
