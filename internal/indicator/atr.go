package indicator

import (
	"math"

	"tabot/internal/model"
)

const outATR = "atr"

func init() {
	register(func(k Key) (Indicator, error) {
		return NewATR(k.Params[0]), requirePeriod("atr", k.Params[0])
	}, outATR)
}

// ATR is the Average True Range: a rolling mean of the true range. The first
// bar has no previous close, so its true range is high minus low.
type ATR struct {
	Period int
}

// NewATR creates an ATR indicator.
func NewATR(period int) *ATR { return &ATR{Period: period} }

// Key returns the output column.
func (a *ATR) Key() Key { return Key{Output: outATR, Params: [3]int{a.Period}} }

func (a *ATR) Name() string   { return a.Key().String() }
func (a *ATR) Outputs() []Key { return []Key{a.Key()} }

func (a *ATR) Compute(s *Series) ([]Key, error) {
	return a.Outputs(), s.Set(a.Key(), ATRValues(s.Candles(), a.Period))
}

// ATRValues returns the raw ATR series for risk sizing without touching a Series.
func ATRValues(candles []model.Candle, period int) []float64 {
	return rollingMean(trueRange(candles), period)
}

func trueRange(candles []model.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		r := c.High - c.Low
		if i > 0 {
			prev := candles[i-1].Close
			r = math.Max(r, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		tr[i] = r
	}
	return tr
}
