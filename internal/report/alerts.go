package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/notification"
	"tabot/internal/strategy"
)

// Alerts turns bracket outcomes into notifications: placed brackets are
// INFO, unwound brackets WARNING and failed rollbacks CRITICAL.
type Alerts struct {
	n       notification.Notifier
	timeout time.Duration
}

// NewAlerts sends through n.
func NewAlerts(n notification.Notifier) *Alerts {
	return &Alerts{n: n, timeout: 15 * time.Second}
}

func (a *Alerts) Snapshot(context.Context, strategy.Snapshot) {}
func (a *Alerts) Progress(context.Context, strategy.Progress) {}

func (a *Alerts) Decision(ctx context.Context, d strategy.Decision) {
	alert, ok := AlertFor(d)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.n.Send(ctx, alert); err != nil {
		slog.Warn("alert delivery failed", "title", alert.Title, "error", err)
	}
}

// AlertFor maps a decision to an alert. Only traded decisions alert.
func AlertFor(d strategy.Decision) (notification.Alert, bool) {
	if d.Outcome != strategy.OutcomeTraded || d.Result == nil {
		return notification.Alert{}, false
	}
	r := d.Result
	alert := notification.Alert{
		Symbol:  d.Symbol,
		At:      d.At,
		Bracket: bracketOf(d),
	}
	if e, ok := exchange.AsError(d.Err); ok {
		alert.Error = &notification.ExchangeError{Code: e.Code, Message: e.Message}
	}
	switch r.Status {
	case execution.StatusPlaced:
		alert.Level = notification.AlertInfo
		alert.Title = fmt.Sprintf("%s bracket placed", r.Direction.Side())
		alert.Message = fmt.Sprintf("%s: qty %g @ %g, stop %g, target %g (vote %+.2f)",
			d.Strategy, r.Quantity, r.Reference, r.Levels.StopLoss, r.Levels.TakeProfit, d.Vote.Value)
	case execution.StatusRollbackFailed:
		alert.Level = notification.AlertCritical
		alert.Title = "rollback failed, position may be unprotected"
		alert.Message = fmt.Sprintf("%s halted: %s", d.Strategy, d.ErrText())
	default:
		alert.Level = notification.AlertWarning
		alert.Title = "bracket " + string(r.Status)
		alert.Message = fmt.Sprintf("%s: %s", d.Strategy, d.ErrText())
	}
	return alert, true
}

func bracketOf(d strategy.Decision) *notification.Bracket {
	r := d.Result
	b := &notification.Bracket{
		Strategy:   d.Strategy,
		Side:       string(r.Direction.Side()),
		Status:     string(r.Status),
		Quantity:   r.Quantity,
		Entry:      r.Reference,
		StopLoss:   r.Levels.StopLoss,
		TakeProfit: r.Levels.TakeProfit,
		Vote:       d.Vote.Value,
	}
	for _, l := range r.Legs {
		b.Legs = append(b.Legs, notification.Leg{Kind: string(l.Leg.Kind), OrderID: l.OrderID})
	}
	return b
}
