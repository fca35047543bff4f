package indicator

import (
	"fmt"
	"math"

	"tabot/internal/model"
)

// Series is the per-symbol arena for one decision cycle: the closed candles
// plus every column derived from them. It is built fresh each cycle and is
// not safe for concurrent use.
type Series struct {
	Symbol    string
	Timeframe model.Timeframe

	candles []model.Candle
	cols    map[Key][]float64
}

// NewSeries wraps candles (oldest first) in an empty arena.
func NewSeries(symbol string, tf model.Timeframe, candles []model.Candle) *Series {
	return &Series{
		Symbol:    symbol,
		Timeframe: tf,
		candles:   candles,
		cols:      make(map[Key][]float64, 16),
	}
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.candles) }

// Candles returns the underlying candles. Callers must not modify them.
func (s *Series) Candles() []model.Candle { return s.candles }

// Last returns the most recent candle.
func (s *Series) Last() (model.Candle, bool) {
	if len(s.candles) == 0 {
		return model.Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Column returns a computed column without resolving it.
func (s *Series) Column(k Key) ([]float64, bool) {
	if k.IsPrice() {
		return s.price(k.Output), true
	}
	v, ok := s.cols[k]
	return v, ok
}

// Set stores a column. Its length must equal the row count.
func (s *Series) Set(k Key, values []float64) error {
	if len(values) != len(s.candles) {
		return fmt.Errorf("indicator: column %s has %d rows, series has %d", k, len(values), len(s.candles))
	}
	s.cols[k] = values
	return nil
}

// Resolve returns column k, computing it (and its inputs) on first use.
func (s *Series) Resolve(k Key) ([]float64, error) {
	if v, ok := s.Column(k); ok {
		return v, nil
	}
	ind, err := For(k)
	if err != nil {
		return nil, err
	}
	if _, err := ind.Compute(s); err != nil {
		return nil, err
	}
	v, ok := s.cols[k]
	if !ok {
		return nil, fmt.Errorf("indicator: %s did not produce %s", ind.Name(), k)
	}
	return v, nil
}

// Value returns column k at back rows before the latest one (0 = latest).
// ok is false when the row does not exist or holds NaN.
func (s *Series) Value(k Key, back int) (float64, bool) {
	col, err := s.Resolve(k)
	if err != nil {
		return 0, false
	}
	i := len(col) - 1 - back
	if i < 0 || i >= len(col) || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Keys returns every computed (non-price) column key.
func (s *Series) Keys() []Key {
	out := make([]Key, 0, len(s.cols))
	for k := range s.cols {
		if k.IsPrice() {
			continue
		}
		out = append(out, k)
	}
	return out
}

func (s *Series) price(field string) []float64 {
	k := Key{Output: field}
	if v, ok := s.cols[k]; ok {
		return v
	}
	v := make([]float64, len(s.candles))
	for i, c := range s.candles {
		switch field {
		case OutOpen:
			v[i] = c.Open
		case OutHigh:
			v[i] = c.High
		case OutLow:
			v[i] = c.Low
		case OutVolume:
			v[i] = c.Volume
		default:
			v[i] = c.Close
		}
	}
	s.cols[k] = v
	return v
}
