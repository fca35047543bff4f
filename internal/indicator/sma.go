package indicator

const outSMA = "sma"

func init() {
	register(func(k Key) (Indicator, error) {
		return NewSMA(k.Params[0]), requirePeriod("sma", k.Params[0])
	}, outSMA)
}

// SMA is the simple moving average of the close price. Rows before the
// first full window average the history available so far.
type SMA struct {
	Period int
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA { return &SMA{Period: period} }

// Key returns the output column.
func (m *SMA) Key() Key { return Key{Output: outSMA, Params: [3]int{m.Period}} }

func (m *SMA) Name() string   { return m.Key().String() }
func (m *SMA) Outputs() []Key { return []Key{m.Key()} }

func (m *SMA) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	return m.Outputs(), s.Set(m.Key(), rollingMean(closes, m.Period))
}
