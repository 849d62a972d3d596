package dataset

import (
	"fmt"
	"time"

	"futures-backtest/services/engine"
)

// Resample aggregates a series into wider buckets aligned to the epoch.
// Open is the bucket's first, close its last, high/low the extremes, volume
// the sum. Indicator columns do not survive aggregation and must be
// recomputed on the result.
func Resample(s *engine.Series, width time.Duration, timeframe string) (*engine.Series, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid bucket width %s", width)
	}
	s.Normalize()
	if len(s.Bars) == 0 {
		return nil, fmt.Errorf("no bars to resample")
	}

	out := &engine.Series{Symbol: s.Symbol, Timeframe: timeframe}
	var cur *engine.Bar
	for _, b := range s.Bars {
		bucket := b.Time.Truncate(width)
		if cur == nil || !cur.Time.Equal(bucket) {
			if cur != nil {
				out.Bars = append(out.Bars, *cur)
			}
			nb := engine.Bar{
				Time:   bucket,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			cur = &nb
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	out.Bars = append(out.Bars, *cur)
	return out, nil
}
