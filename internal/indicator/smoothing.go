package indicator

import "math"

// ewm is an exponential average with alpha = 1/period seeded with the first
// value: y[0] = x[0], y[i] = a*x[i] + (1-a)*y[i-1].
func ewm(x []float64, period int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	a := 1 / float64(period)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = a*x[i] + (1-a)*out[i-1]
	}
	return out
}

// rollingMean averages the window max(0, i-period+1)..i, so early rows use
// whatever history exists.
func rollingMean(x []float64, period int) []float64 {
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		sum += v
		if i >= period {
			sum -= x[i-period]
		}
		n := period
		if i+1 < period {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

// rollingStd is the sample standard deviation over the same window as
// rollingMean. Windows with fewer than two samples yield 0.
func rollingStd(x []float64, period int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		n := i - lo + 1
		if n < 2 {
			continue
		}
		var mean float64
		for _, v := range x[lo : i+1] {
			mean += v
		}
		mean /= float64(n)
		var ss float64
		for _, v := range x[lo : i+1] {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

func rollingMin(x []float64, period int) []float64 {
	return rollingExtreme(x, period, func(a, b float64) bool { return a < b })
}

func rollingMax(x []float64, period int) []float64 {
	return rollingExtreme(x, period, func(a, b float64) bool { return a > b })
}

func rollingExtreme(x []float64, period int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		lo := i - period + 1
		if lo < 0 {
			lo = 0
		}
		best := x[lo]
		for _, v := range x[lo+1 : i+1] {
			if better(v, best) {
				best = v
			}
		}
		out[i] = best
	}
	return out
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
