package signal

import (
	"fmt"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

// Divergence defaults.
const (
	DefaultDivergenceWindow = 50
	DefaultExtremaOrder     = 5
)

// DivergenceRule compares the swing structure of the close with that of an
// oscillator over the last Window rows.
//
//	regular bearish: price higher high, oscillator lower high
//	regular bullish: price lower low,   oscillator higher low
//	hidden bearish:  price lower high,  oscillator higher high
//	hidden bullish:  price higher low,  oscillator lower low
//
// Checks run in that order; the first match wins.
type DivergenceRule struct {
	Key    indicator.Key
	Window int
	Order  int
}

func (r *DivergenceRule) Name() string          { return "divergence-" + r.Key.String() }
func (r *DivergenceRule) Keys() []indicator.Key { return []indicator.Key{indicator.Close, r.Key} }

func (r *DivergenceRule) Evaluate(s *indicator.Series) Reading {
	closes, err := s.Resolve(indicator.Close)
	if err != nil {
		return Neutral
	}
	osc, err := s.Resolve(r.Key)
	if err != nil {
		return Neutral
	}
	d, kind := Classify(tail(closes, r.Window), tail(osc, r.Window), r.Order)
	return directed(d, fmt.Sprintf("%s divergence price/%s", kind, r.Key))
}

// Classify compares the swings of price and osc and names the divergence
// found, if any.
func Classify(price, osc []float64, order int) (model.Direction, string) {
	p := swingsOf(price, order)
	o := swingsOf(osc, order)
	switch {
	case p.higherHigh && o.lowerHigh:
		return model.Bearish, "bearish"
	case p.lowerLow && o.higherLow:
		return model.Bullish, "bullish"
	case p.lowerHigh && o.higherHigh:
		return model.Bearish, "hidden bearish"
	case p.higherLow && o.lowerLow:
		return model.Bullish, "hidden bullish"
	}
	return model.Neutral, ""
}

type swings struct {
	higherHigh, lowerHigh bool
	higherLow, lowerLow   bool
}

// swingsOf classifies the latest local maximum and minimum against every
// earlier one. Fewer than two extrema of a kind classify nothing.
func swingsOf(x []float64, order int) swings {
	highs, lows := extrema(x, order)
	var sw swings
	if len(highs) > 1 {
		sw.higherHigh, sw.lowerHigh = latestVsPrior(highs)
	}
	if len(lows) > 1 {
		sw.higherLow, sw.lowerLow = latestVsPrior(lows)
	}
	return sw
}

func latestVsPrior(vals []float64) (above, below bool) {
	last := vals[len(vals)-1]
	above, below = true, true
	for _, v := range vals[:len(vals)-1] {
		if last <= v {
			above = false
		}
		if last >= v {
			below = false
		}
	}
	return above, below
}

// extrema returns the values of strict local maxima and minima. Row i
// qualifies when it beats every in-bounds neighbour within order rows on
// both sides; the first and last rows never qualify.
func extrema(x []float64, order int) (highs, lows []float64) {
	n := len(x)
	for i := 1; i < n-1; i++ {
		isHigh, isLow := true, true
		for j := i - order; j <= i+order; j++ {
			if j == i || j < 0 || j >= n {
				continue
			}
			if x[i] <= x[j] {
				isHigh = false
			}
			if x[i] >= x[j] {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, x[i])
		}
		if isLow {
			lows = append(lows, x[i])
		}
	}
	return highs, lows
}

func tail(x []float64, n int) []float64 {
	if n <= 0 || n >= len(x) {
		return x
	}
	return x[len(x)-n:]
}
