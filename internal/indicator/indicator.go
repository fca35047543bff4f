// Package indicator derives numeric columns from candle series.
//
// Every indicator reads columns that already exist on a Series (price columns
// or other indicator outputs) and writes its own output columns. A column at
// row i depends only on rows 0..i. Computing an indicator twice overwrites its
// columns with identical values.
package indicator

import (
	"fmt"
	"sort"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "macd(12/26/9)").
	Name() string

	// Outputs returns the keys this indicator writes.
	Outputs() []Key

	// Compute writes every output column onto s and returns the keys written.
	Compute(s *Series) ([]Key, error)
}

// factory builds the indicator producing an output from that output's key.
type factory func(k Key) (Indicator, error)

var registry = map[string]factory{}

func register(f factory, outputs ...string) {
	for _, o := range outputs {
		if _, dup := registry[o]; dup {
			panic("indicator: duplicate output " + o)
		}
		registry[o] = f
	}
}

// For returns the indicator that produces column k.
func For(k Key) (Indicator, error) {
	f, ok := registry[k.Output]
	if !ok {
		return nil, fmt.Errorf("indicator: no indicator produces %q", k.Output)
	}
	return f(k)
}

// Outputs lists every registered output name, sorted.
func Outputs() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func requirePeriod(name string, periods ...int) error {
	for _, p := range periods {
		if p <= 0 {
			return fmt.Errorf("indicator: %s period must be positive, got %d", name, p)
		}
	}
	return nil
}
