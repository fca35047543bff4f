package strategy

import (
	"math"

	"tabot/internal/model"
	"tabot/internal/signal"
)

// Vote aggregates the readings of every rule for one symbol.
type Vote struct {
	Value   float64  `json:"value"`
	Bullish int      `json:"bullish"`
	Bearish int      `json:"bearish"`
	Total   int      `json:"total"`
	Reasons []string `json:"reasons,omitempty"`
}

// Tally sums the reading directions and divides by the number of rules.
// Neutral readings count towards the total but not the sum.
func Tally(readings []signal.Reading) Vote {
	v := Vote{Total: len(readings)}
	sum := 0
	for _, r := range readings {
		switch r.Direction {
		case model.Bullish:
			v.Bullish++
		case model.Bearish:
			v.Bearish++
		default:
			continue
		}
		sum += int(r.Direction)
		v.Reasons = append(v.Reasons, r.Description)
	}
	if v.Total > 0 {
		v.Value = float64(sum) / float64(v.Total)
	}
	return v
}

// Direction returns the sign of the vote.
func (v Vote) Direction() model.Direction {
	switch {
	case v.Value > 0:
		return model.Bullish
	case v.Value < 0:
		return model.Bearish
	}
	return model.Neutral
}

// Passes reports whether the vote is decisive enough to trade.
func (v Vote) Passes(minVote float64) bool {
	return v.Value != 0 && math.Abs(v.Value) >= minVote
}
