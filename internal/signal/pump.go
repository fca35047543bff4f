package signal

import (
	"fmt"

	"tabot/internal/indicator"
)

// PumpRule is bullish when each of the last Candles bars rose at least
// RisePct percent from open to close.
type PumpRule struct {
	Candles int
	RisePct float64
}

func (r *PumpRule) Name() string          { return fmt.Sprintf("pump-%d", r.Candles) }
func (r *PumpRule) Keys() []indicator.Key { return nil }

func (r *PumpRule) Evaluate(s *indicator.Series) Reading {
	candles := s.Candles()
	if r.Candles <= 0 || len(candles) < r.Candles {
		return Neutral
	}
	for _, c := range candles[len(candles)-r.Candles:] {
		if c.ChangePct() < r.RisePct {
			return Neutral
		}
	}
	return bullish(fmt.Sprintf("last %d candles rose ≥ %s%%", r.Candles, num(r.RisePct)))
}
