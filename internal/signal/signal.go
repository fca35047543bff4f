// Package signal turns indicator columns into directional readings.
//
// Each Evaluator looks only at the latest rows of a Series and answers
// BULLISH, BEARISH or NEUTRAL with a short human-readable reason. Evaluators
// are built once from configuration; the kind of rule is decided at build
// time, never on each evaluation.
package signal

import (
	"errors"
	"strconv"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

// ErrInvalidRule is returned by Build for unusable rule configuration.
var ErrInvalidRule = errors.New("signal: invalid rule")

// Reading is the outcome of one evaluation. Neutral readings carry no
// description.
type Reading struct {
	Direction   model.Direction `json:"direction"`
	Description string          `json:"description,omitempty"`
}

// Neutral is the empty reading.
var Neutral = Reading{}

func bullish(desc string) Reading { return Reading{Direction: model.Bullish, Description: desc} }
func bearish(desc string) Reading { return Reading{Direction: model.Bearish, Description: desc} }

func directed(d model.Direction, desc string) Reading {
	if d == model.Neutral {
		return Neutral
	}
	return Reading{Direction: d, Description: desc}
}

// Evaluator reads a Series and emits one Reading.
type Evaluator interface {
	// Name identifies the rule in logs and reports.
	Name() string

	// Keys lists the columns the rule reads, so callers can precompute them.
	Keys() []indicator.Key

	// Evaluate inspects the latest rows. Missing columns, short series and
	// NaN values all yield Neutral.
	Evaluate(s *indicator.Series) Reading
}

// latestPair returns column k at the previous and the latest row.
func latestPair(s *indicator.Series, k indicator.Key) (prev, cur float64, ok bool) {
	cur, ok = s.Value(k, 0)
	if !ok {
		return 0, 0, false
	}
	prev, ok = s.Value(k, 1)
	return prev, cur, ok
}

func label(k indicator.Key) string {
	if k == indicator.Close {
		return "price"
	}
	return k.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
