package strategy

import (
	"context"
	"time"

	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/model"
	"tabot/internal/portfolio"
)

// Snapshot is reported at the start of every cycle.
type Snapshot struct {
	Strategy  string            `json:"strategy"`
	Market    exchange.Market   `json:"market"`
	Timeframe model.Timeframe   `json:"timeframe"`
	Summary   portfolio.Summary `json:"summary"`
	NextClose time.Time         `json:"next_close"`
}

// Progress is reported before each symbol is evaluated.
type Progress struct {
	Strategy string `json:"strategy"`
	Symbol   string `json:"symbol"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
}

// Outcome classifies a Decision.
type Outcome string

const (
	OutcomeHold    Outcome = "HOLD"    // vote below threshold
	OutcomeSkipped Outcome = "SKIPPED" // position open, risk limit or market rule
	OutcomeTraded  Outcome = "TRADED"  // bracket attempted; see Result.Status
	OutcomeError   Outcome = "ERROR"   // candles or indicators unavailable
)

// Decision is the result of evaluating one symbol in one cycle.
type Decision struct {
	Strategy  string            `json:"strategy"`
	Symbol    string            `json:"symbol"`
	Timeframe model.Timeframe   `json:"timeframe"`
	Outcome   Outcome           `json:"outcome"`
	Vote      Vote              `json:"vote"`
	Reason    string            `json:"reason,omitempty"`
	Price     float64           `json:"price"`
	Result    *execution.Result `json:"result,omitempty"`
	Err       error             `json:"-"`
	At        time.Time         `json:"at"`
}

// ErrText returns the decision or bracket error text, if any.
func (d Decision) ErrText() string {
	if d.Err != nil {
		return d.Err.Error()
	}
	return ""
}

// Reporter receives everything the loop wants surfaced. Implementations
// must not block for long; the loop calls them inline.
type Reporter interface {
	Snapshot(ctx context.Context, s Snapshot)
	Progress(ctx context.Context, p Progress)
	Decision(ctx context.Context, d Decision)
}

type nopReporter struct{}

func (nopReporter) Snapshot(context.Context, Snapshot) {}
func (nopReporter) Progress(context.Context, Progress) {}
func (nopReporter) Decision(context.Context, Decision) {}
