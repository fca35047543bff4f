package indicator

const (
	outStochK    = "stoch-k"
	outStochD    = "stoch-d"
	outStochDiff = "stoch-diff"
)

func init() {
	register(func(k Key) (Indicator, error) {
		st := NewStochastic(k.Params[0], k.Params[1])
		return st, requirePeriod("stochastic", st.Period, st.Slow)
	}, outStochK, outStochD, outStochDiff)
}

// Stochastic writes the fast %K, the slow %D (EMA of %K) and their
// difference. A window whose high equals its low reads 50.
type Stochastic struct {
	Period int
	Slow   int
}

// NewStochastic creates the oscillator; 14/3 is the usual setting.
func NewStochastic(period, slow int) *Stochastic {
	return &Stochastic{Period: period, Slow: slow}
}

func (st *Stochastic) key(out string) Key {
	return Key{Output: out, Params: [3]int{st.Period, st.Slow}}
}

func (st *Stochastic) KKey() Key    { return st.key(outStochK) }
func (st *Stochastic) DKey() Key    { return st.key(outStochD) }
func (st *Stochastic) DiffKey() Key { return st.key(outStochDiff) }

func (st *Stochastic) Name() string { return st.KKey().String() }

func (st *Stochastic) Outputs() []Key {
	return []Key{st.KKey(), st.DKey(), st.DiffKey()}
}

func (st *Stochastic) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	highs, _ := s.Column(Key{Output: OutHigh})
	lows, _ := s.Column(Key{Output: OutLow})

	lo := rollingMin(lows, st.Period)
	hi := rollingMax(highs, st.Period)
	fast := make([]float64, len(closes))
	for i := range fast {
		rng := hi[i] - lo[i]
		if rng == 0 {
			fast[i] = 50
			continue
		}
		fast[i] = (closes[i] - lo[i]) / rng * 100
	}
	slow := ewm(fast, st.Slow)

	cols := [][]float64{fast, slow, sub(fast, slow)}
	keys := st.Outputs()
	for i, k := range keys {
		if err := s.Set(k, cols[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
