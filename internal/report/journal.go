package report

import (
	"context"
	"log/slog"

	"tabot/internal/execution"
	"tabot/internal/strategy"
)

// Journal records decisions that carried a signal into the SQLite journal.
// Silent holds (vote 0) are not recorded.
type Journal struct {
	j *execution.Journal
}

// NewJournal wraps an open journal.
func NewJournal(j *execution.Journal) *Journal {
	return &Journal{j: j}
}

func (r *Journal) Snapshot(context.Context, strategy.Snapshot) {}
func (r *Journal) Progress(context.Context, strategy.Progress) {}

func (r *Journal) Decision(ctx context.Context, d strategy.Decision) {
	if d.Outcome == strategy.OutcomeHold && d.Vote.Value == 0 {
		return
	}
	if err := r.j.Record(Record(d)); err != nil {
		slog.Error("journal write failed", "symbol", d.Symbol, "error", err)
	}
}

// Record converts a decision into a journal row.
func Record(d strategy.Decision) execution.DecisionRecord {
	rec := execution.DecisionRecord{
		Strategy:       d.Strategy,
		Symbol:         d.Symbol,
		Timeframe:      d.Timeframe.String(),
		Vote:           d.Vote.Value,
		Direction:      d.Vote.Direction().String(),
		Reasons:        d.Vote.Reasons,
		Status:         string(d.Outcome),
		ReferencePrice: d.Price,
		Error:          d.ErrText(),
		DecidedAt:      d.At,
	}
	if d.Reason != "" && rec.Error == "" {
		rec.Error = d.Reason
	}
	if r := d.Result; r != nil {
		rec.Status = string(r.Status)
		rec.Quantity = r.Quantity
		rec.StopLoss = r.Levels.StopLoss
		rec.TakeProfit = r.Levels.TakeProfit
	}
	return rec
}
