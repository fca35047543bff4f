package indicator

const outRSI = "rsi"

func init() {
	register(func(k Key) (Indicator, error) {
		return NewRSI(k.Params[0]), requirePeriod("rsi", k.Params[0])
	}, outRSI)
}

// RSI is the Relative Strength Index. Up and down moves are smoothed with
// the package EMA; a window with no down moves reads 100.
type RSI struct {
	Period int
}

// NewRSI creates a new RSI indicator with the given period.
func NewRSI(period int) *RSI { return &RSI{Period: period} }

// Key returns the output column.
func (r *RSI) Key() Key { return Key{Output: outRSI, Params: [3]int{r.Period}} }

func (r *RSI) Name() string   { return r.Key().String() }
func (r *RSI) Outputs() []Key { return []Key{r.Key()} }

func (r *RSI) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	n := len(closes)
	up := make([]float64, n)
	down := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			up[i] = d
		} else {
			down[i] = -d
		}
	}
	emaUp := ewm(up, r.Period)
	emaDown := ewm(down, r.Period)

	out := make([]float64, n)
	for i := range out {
		if emaDown[i] == 0 {
			out[i] = 100
			continue
		}
		rs := emaUp[i] / emaDown[i]
		out[i] = 100 - 100/(1+rs)
	}
	return r.Outputs(), s.Set(r.Key(), out)
}
