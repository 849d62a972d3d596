package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Series{Bars: []Bar{
		{Time: t0.Add(2 * time.Hour), Open: 3},
		{Time: t0, Open: 1},
		{Time: time.Time{}, Open: 99}, // invalid timestamp dropped
		{Time: t0.Add(time.Hour), Open: 2},
		{Time: t0.Add(time.Hour), Open: 22}, // duplicate keeps first
	}}
	s.Normalize()

	assert.Len(t, s.Bars, 3)
	assert.Equal(t, 1.0, s.Bars[0].Open)
	assert.Equal(t, 2.0, s.Bars[1].Open)
	assert.Equal(t, 3.0, s.Bars[2].Open)
	for i := 1; i < len(s.Bars); i++ {
		assert.True(t, s.Bars[i].Time.After(s.Bars[i-1].Time))
	}
}

func TestWindowIsInclusive(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := flatSeries(5, 100)

	w := s.Window(t0.Add(4*time.Hour), t0.Add(12*time.Hour))
	assert.Len(t, w.Bars, 3)
	assert.Equal(t, t0.Add(4*time.Hour), w.Bars[0].Time)
	assert.Equal(t, t0.Add(12*time.Hour), w.Bars[2].Time)

	// Zero bounds leave the side open.
	assert.Len(t, s.Window(time.Time{}, time.Time{}).Bars, 5)
}

func TestFieldReturnsNaNWhenAbsent(t *testing.T) {
	b := Bar{Fields: map[string]float64{"rsi": 42}}
	assert.Equal(t, 42.0, b.Field("rsi"))
	assert.True(t, math.IsNaN(b.Field("macd")))
	assert.True(t, math.IsNaN(Bar{}.Field("rsi")))
}
