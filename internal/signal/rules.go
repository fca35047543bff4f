package signal

import (
	"fmt"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

// PriceRule compares the close with a base column: above is bullish,
// below is bearish.
type PriceRule struct {
	Base indicator.Key
}

func (r *PriceRule) Name() string          { return "price-vs-" + r.Base.String() }
func (r *PriceRule) Keys() []indicator.Key { return []indicator.Key{indicator.Close, r.Base} }

func (r *PriceRule) Evaluate(s *indicator.Series) Reading {
	price, ok1 := s.Value(indicator.Close, 0)
	base, ok2 := s.Value(r.Base, 0)
	switch {
	case !ok1 || !ok2:
		return Neutral
	case price > base:
		return bullish("price > " + r.Base.String())
	case price < base:
		return bearish("price < " + r.Base.String())
	}
	return Neutral
}

// Filter vetoes a reading unless another column passes its own limit,
// e.g. only trade DI flips while adx(14) > 20.
type Filter struct {
	Key   indicator.Key
	Limit float64
	Below bool // pass when the value is under Limit instead of over it
}

func (f *Filter) pass(s *indicator.Series) (string, bool) {
	v, ok := s.Value(f.Key, 0)
	if !ok {
		return "", false
	}
	if f.Below {
		return fmt.Sprintf("%s < %s", f.Key, num(f.Limit)), v < f.Limit
	}
	return fmt.Sprintf("%s > %s", f.Key, num(f.Limit)), v > f.Limit
}

// ThresholdRule fires when a value sits at or beyond a limit. Without Reverse
// it reads oversold/overbought (v <= Buy is bullish, v >= Sell is bearish);
// with Reverse it reads strength (v >= Buy is bullish, v <= Sell is bearish).
// Either limit may be absent.
type ThresholdRule struct {
	Key       indicator.Key
	Buy, Sell *float64
	Reverse   bool
	Filter    *Filter
}

func (r *ThresholdRule) Name() string { return "threshold-" + r.Key.String() }

func (r *ThresholdRule) Keys() []indicator.Key {
	keys := []indicator.Key{r.Key}
	if r.Filter != nil {
		keys = append(keys, r.Filter.Key)
	}
	return keys
}

func (r *ThresholdRule) Evaluate(s *indicator.Series) Reading {
	v, ok := s.Value(r.Key, 0)
	if !ok {
		return Neutral
	}
	name := label(r.Key)

	var out Reading
	switch {
	case r.Buy != nil && !r.Reverse && v <= *r.Buy:
		out = bullish(fmt.Sprintf("%s ≤ %s", name, num(*r.Buy)))
	case r.Buy != nil && r.Reverse && v >= *r.Buy:
		out = bullish(fmt.Sprintf("%s ≥ %s", name, num(*r.Buy)))
	case r.Sell != nil && !r.Reverse && v >= *r.Sell:
		out = bearish(fmt.Sprintf("%s ≥ %s", name, num(*r.Sell)))
	case r.Sell != nil && r.Reverse && v <= *r.Sell:
		out = bearish(fmt.Sprintf("%s ≤ %s", name, num(*r.Sell)))
	default:
		return Neutral
	}

	if r.Filter != nil {
		cond, ok := r.Filter.pass(s)
		if !ok {
			return Neutral
		}
		out.Description += ", " + cond
	}
	return out
}

// CrossLimitRule fires on the bar where a value crosses a fixed level:
// prev <= L < cur is an upward cross, prev >= L > cur a downward one.
// Reverse swaps the direction emitted for each cross.
type CrossLimitRule struct {
	Key     indicator.Key
	Limit   float64
	Reverse bool
}

func (r *CrossLimitRule) Name() string          { return "cross-" + r.Key.String() }
func (r *CrossLimitRule) Keys() []indicator.Key { return []indicator.Key{r.Key} }

func (r *CrossLimitRule) Evaluate(s *indicator.Series) Reading {
	prev, cur, ok := latestPair(s, r.Key)
	if !ok {
		return Neutral
	}
	var d model.Direction
	var verb string
	switch {
	case prev <= r.Limit && cur > r.Limit:
		d, verb = model.Bullish, "crossed up"
	case prev >= r.Limit && cur < r.Limit:
		d, verb = model.Bearish, "crossed down"
	default:
		return Neutral
	}
	if r.Reverse {
		d = -d
	}
	return directed(d, fmt.Sprintf("%s %s %s", label(r.Key), verb, num(r.Limit)))
}

// CrossBaseRule fires on the bar where one column crosses another.
type CrossBaseRule struct {
	Key     indicator.Key
	Base    indicator.Key
	Reverse bool
}

func (r *CrossBaseRule) Name() string          { return "cross-" + r.Key.String() + "-" + r.Base.String() }
func (r *CrossBaseRule) Keys() []indicator.Key { return []indicator.Key{r.Key, r.Base} }

func (r *CrossBaseRule) Evaluate(s *indicator.Series) Reading {
	prevV, curV, ok1 := latestPair(s, r.Key)
	prevB, curB, ok2 := latestPair(s, r.Base)
	if !ok1 || !ok2 {
		return Neutral
	}
	var d model.Direction
	var verb string
	switch {
	case prevV <= prevB && curV > curB:
		d, verb = model.Bullish, "crossed up"
	case prevV >= prevB && curV < curB:
		d, verb = model.Bearish, "crossed down"
	default:
		return Neutral
	}
	if r.Reverse {
		d = -d
	}
	return directed(d, fmt.Sprintf("%s %s %s", label(r.Key), verb, label(r.Base)))
}

// RisingRule follows the slope of the last two values.
type RisingRule struct {
	Key     indicator.Key
	Reverse bool
}

func (r *RisingRule) Name() string          { return "rising-" + r.Key.String() }
func (r *RisingRule) Keys() []indicator.Key { return []indicator.Key{r.Key} }

func (r *RisingRule) Evaluate(s *indicator.Series) Reading {
	prev, cur, ok := latestPair(s, r.Key)
	if !ok {
		return Neutral
	}
	var d model.Direction
	var verb string
	switch {
	case cur > prev:
		d, verb = model.Bullish, "rising"
	case cur < prev:
		d, verb = model.Bearish, "falling"
	default:
		return Neutral
	}
	if r.Reverse {
		d = -d
	}
	return directed(d, label(r.Key)+" "+verb)
}
