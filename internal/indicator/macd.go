package indicator

const (
	outMACD       = "macd"
	outMACDSignal = "macd-s"
	outMACDHist   = "macd-h"
	outMACDHistMA = "macd-ma"
)

func init() {
	register(func(k Key) (Indicator, error) {
		m := NewMACD(k.Params[0], k.Params[1], k.Params[2])
		return m, requirePeriod("macd", m.Short, m.Long, m.Signal)
	}, outMACD, outMACDSignal, outMACDHist, outMACDHistMA)
}

// MACD writes the MACD line, its signal line, the histogram (line minus
// signal) and a rolling mean of the histogram over the signal period.
type MACD struct {
	Short, Long, Signal int
}

// NewMACD creates the MACD family; 12/26/9 is the usual setting.
func NewMACD(short, long, signal int) *MACD {
	return &MACD{Short: short, Long: long, Signal: signal}
}

func (m *MACD) key(out string) Key {
	return Key{Output: out, Params: [3]int{m.Short, m.Long, m.Signal}}
}

func (m *MACD) LineKey() Key      { return m.key(outMACD) }
func (m *MACD) SignalKey() Key    { return m.key(outMACDSignal) }
func (m *MACD) HistogramKey() Key { return m.key(outMACDHist) }
func (m *MACD) HistMAKey() Key    { return m.key(outMACDHistMA) }

func (m *MACD) Name() string { return m.SignalKey().String() }

func (m *MACD) Outputs() []Key {
	return []Key{m.LineKey(), m.SignalKey(), m.HistogramKey(), m.HistMAKey()}
}

func (m *MACD) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	line := sub(ewm(closes, m.Short), ewm(closes, m.Long))
	signal := ewm(line, m.Signal)
	hist := sub(line, signal)

	cols := [][]float64{line, signal, hist, rollingMean(hist, m.Signal)}
	keys := m.Outputs()
	for i, k := range keys {
		if err := s.Set(k, cols[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
