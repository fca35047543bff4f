package indicator

const (
	outBBLower  = "bb-l"
	outBBMiddle = "bb-m"
	outBBUpper  = "bb-u"
)

func init() {
	register(func(k Key) (Indicator, error) {
		b := NewBollinger(k.Params[0], k.Params[1])
		return b, requirePeriod("bollinger", b.Period, b.StdCount)
	}, outBBLower, outBBMiddle, outBBUpper)
}

// Bollinger writes the middle band (SMA) and the bands StdCount rolling
// sample standard deviations of the middle band away from it.
type Bollinger struct {
	Period   int
	StdCount int
}

// NewBollinger creates the bands; 20/2 is the usual setting.
func NewBollinger(period, stdCount int) *Bollinger {
	return &Bollinger{Period: period, StdCount: stdCount}
}

func (b *Bollinger) key(out string) Key {
	return Key{Output: out, Params: [3]int{b.Period, b.StdCount}}
}

func (b *Bollinger) LowerKey() Key  { return b.key(outBBLower) }
func (b *Bollinger) MiddleKey() Key { return b.key(outBBMiddle) }
func (b *Bollinger) UpperKey() Key  { return b.key(outBBUpper) }

func (b *Bollinger) Name() string { return b.MiddleKey().String() }

func (b *Bollinger) Outputs() []Key {
	return []Key{b.LowerKey(), b.MiddleKey(), b.UpperKey()}
}

func (b *Bollinger) Compute(s *Series) ([]Key, error) {
	closes, _ := s.Column(Close)
	middle := rollingMean(closes, b.Period)
	std := rollingStd(middle, b.Period)

	n := len(middle)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range middle {
		band := float64(b.StdCount) * std[i]
		lower[i] = middle[i] - band
		upper[i] = middle[i] + band
	}

	cols := [][]float64{lower, middle, upper}
	keys := b.Outputs()
	for i, k := range keys {
		if err := s.Set(k, cols[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
