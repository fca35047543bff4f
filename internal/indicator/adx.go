package indicator

import "math"

const (
	outPlusDI  = "+di"
	outMinusDI = "-di"
	outADX     = "adx"
	outADXDiff = "adx-diff"
)

func init() {
	register(func(k Key) (Indicator, error) {
		return NewADX(k.Params[0]), requirePeriod("adx", k.Params[0])
	}, outPlusDI, outMinusDI, outADX, outADXDiff)
}

// ADX writes +DI, -DI, the normalized DI difference in [-100, 100] and the
// Average Directional Index, the rolling mean of the absolute difference.
type ADX struct {
	Period int
}

// NewADX creates an ADX indicator.
func NewADX(period int) *ADX { return &ADX{Period: period} }

func (a *ADX) key(out string) Key { return Key{Output: out, Params: [3]int{a.Period}} }

func (a *ADX) PlusDIKey() Key  { return a.key(outPlusDI) }
func (a *ADX) MinusDIKey() Key { return a.key(outMinusDI) }
func (a *ADX) ADXKey() Key     { return a.key(outADX) }
func (a *ADX) DiffKey() Key    { return a.key(outADXDiff) }

func (a *ADX) Name() string { return a.ADXKey().String() }

func (a *ADX) Outputs() []Key {
	return []Key{a.PlusDIKey(), a.MinusDIKey(), a.DiffKey(), a.ADXKey()}
}

func (a *ADX) Compute(s *Series) ([]Key, error) {
	candles := s.Candles()
	n := len(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		plusDM[i] = math.Max(candles[i].High-candles[i-1].High, 0)
		minusDM[i] = math.Max(candles[i-1].Low-candles[i].Low, 0)
	}
	smPlus := ewm(plusDM, a.Period)
	smMinus := ewm(minusDM, a.Period)
	atr := ATRValues(candles, a.Period)

	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	diff := make([]float64, n)
	absDiff := make([]float64, n)
	for i := 0; i < n; i++ {
		if atr[i] > 0 {
			plusDI[i] = 100 * smPlus[i] / atr[i]
			minusDI[i] = 100 * smMinus[i] / atr[i]
		}
		if sum := plusDI[i] + minusDI[i]; sum != 0 {
			diff[i] = 100 * (plusDI[i] - minusDI[i]) / sum
		}
		absDiff[i] = math.Abs(diff[i])
	}

	cols := [][]float64{plusDI, minusDI, diff, rollingMean(absDiff, a.Period)}
	keys := a.Outputs()
	for i, k := range keys {
		if err := s.Set(k, cols[i]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
