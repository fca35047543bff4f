package indicator

import (
	"fmt"
	"time"

	"tabot/internal/model"
)

// Engine precomputes a fixed set of columns for every symbol in a cycle.
// Not safe for concurrent use.
type Engine struct {
	indicators []Indicator

	// OnCompute, if set, observes the time spent building one series.
	OnCompute func(d time.Duration)
}

// NewEngine creates an engine that materializes keys on every Build. Keys
// produced by the same indicator (e.g. macd-h and macd-s) share one run.
func NewEngine(keys []Key) (*Engine, error) {
	e := &Engine{}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k.IsPrice() {
			continue
		}
		ind, err := For(k)
		if err != nil {
			return nil, err
		}
		if !produces(ind, k) {
			return nil, fmt.Errorf("indicator: %s does not produce %s", ind.Name(), k)
		}
		if seen[ind.Name()] {
			continue
		}
		seen[ind.Name()] = true
		e.indicators = append(e.indicators, ind)
	}
	return e, nil
}

func produces(ind Indicator, k Key) bool {
	for _, o := range ind.Outputs() {
		if o == k {
			return true
		}
	}
	return false
}

// Indicators returns the configured indicators in computation order.
func (e *Engine) Indicators() []Indicator { return e.indicators }

// Build wraps candles in a fresh Series and computes every configured column.
func (e *Engine) Build(symbol string, tf model.Timeframe, candles []model.Candle) (*Series, error) {
	start := time.Now()
	s := NewSeries(symbol, tf, candles)
	for _, ind := range e.indicators {
		if _, err := ind.Compute(s); err != nil {
			return nil, fmt.Errorf("indicator: %s on %s: %w", ind.Name(), symbol, err)
		}
	}
	if e.OnCompute != nil {
		e.OnCompute(time.Since(start))
	}
	return s, nil
}
