package engine

// touchResult indicates which precomputed trigger a bar crossed.
type touchResult int

const (
	touchNone touchResult = iota
	touchTP
	touchSL
)

// resolveTouch checks whether the current bar's extremes cross the position's
// trigger prices. When both levels fall inside one bar the OHLC row cannot
// reveal which traded first; take-profit wins as the documented tie-break.
func resolveTouch(bar Bar, pos *Position) touchResult {
	var hitTP, hitSL bool
	if pos.Side == SideLong {
		hitSL = bar.Low <= pos.SLPrice
		hitTP = bar.High >= pos.TPPrice
	} else {
		hitSL = bar.High >= pos.SLPrice
		hitTP = bar.Low <= pos.TPPrice
	}
	switch {
	case hitTP:
		return touchTP
	case hitSL:
		return touchSL
	}
	return touchNone
}
