package indicator

import "fmt"

const (
	outEMA  = "ema"
	outDEMA = "dema"
)

func init() {
	register(func(k Key) (Indicator, error) {
		e := &EMA{Period: k.Params[0]}
		if k.Source != "" {
			src, err := ParseKey(k.Source)
			if err != nil {
				return nil, err
			}
			e.Source = src
		}
		return e, requirePeriod("ema", e.Period)
	}, outEMA)
	register(func(k Key) (Indicator, error) {
		return NewDEMA(k.Params[0]), requirePeriod("dema", k.Params[0])
	}, outDEMA)
}

// EMA is the exponential moving average of a source column (close by default).
type EMA struct {
	Period int
	Source Key
}

// NewEMA creates an EMA over the close price.
func NewEMA(period int) *EMA {
	return &EMA{Period: period, Source: Close}
}

func (e *EMA) source() Key {
	if e.Source.Output == "" {
		return Close
	}
	return e.Source
}

// Key returns the output column.
func (e *EMA) Key() Key {
	k := Key{Output: outEMA, Params: [3]int{e.Period}}
	if src := e.source(); src != Close {
		k.Source = src.String()
	}
	return k
}

func (e *EMA) Name() string   { return e.Key().String() }
func (e *EMA) Outputs() []Key { return []Key{e.Key()} }

func (e *EMA) Compute(s *Series) ([]Key, error) {
	in, err := s.Resolve(e.source())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	return e.Outputs(), s.Set(e.Key(), ewm(in, e.Period))
}

// DEMA applies the EMA twice: EMA(EMA(close)).
type DEMA struct {
	Period int
}

// NewDEMA creates a double EMA.
func NewDEMA(period int) *DEMA { return &DEMA{Period: period} }

// Key returns the output column.
func (d *DEMA) Key() Key { return Key{Output: outDEMA, Params: [3]int{d.Period}} }

func (d *DEMA) Name() string   { return d.Key().String() }
func (d *DEMA) Outputs() []Key { return []Key{d.Key()} }

func (d *DEMA) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	return d.Outputs(), s.Set(d.Key(), ewm(ewm(closes, d.Period), d.Period))
}
