// Package notification delivers trading alerts to external channels.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Trade alerts carry the
// bracket behind them and, when an exchange rejected a leg, its error.
type Alert struct {
	Level   AlertLevel     `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Symbol  string         `json:"symbol,omitempty"`
	Bracket *Bracket       `json:"bracket,omitempty"`
	Error   *ExchangeError `json:"error,omitempty"`
	At      time.Time      `json:"at"`
}

// Bracket summarizes an entry and its protective legs.
type Bracket struct {
	Strategy   string  `json:"strategy"`
	Side       string  `json:"side"`
	Status     string  `json:"status"`
	Quantity   float64 `json:"quantity"`
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Vote       float64 `json:"vote"`
	Legs       []Leg   `json:"legs,omitempty"`
}

// Leg is one order that reached the exchange.
type Leg struct {
	Kind    string `json:"kind"`
	OrderID string `json:"order_id"`
}

// ExchangeError is the exchange's rejection of a leg.
type ExchangeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts; used when no external channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case AlertWarning:
		level = slog.LevelWarn
	case AlertCritical:
		level = slog.LevelError
	}
	attrs := []any{"alert", string(alert.Level), "symbol", alert.Symbol, "message", alert.Message}
	if b := alert.Bracket; b != nil {
		attrs = append(attrs, "status", b.Status, "legs", len(b.Legs))
	}
	if e := alert.Error; e != nil {
		attrs = append(attrs, "code", e.Code)
	}
	slog.Log(ctx, level, alert.Title, attrs...)
	return nil
}

// Multi sends every alert to all notifiers. A failing backend does not stop
// the others; the errors are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MinLevel drops alerts below level before forwarding to Next.
type MinLevel struct {
	Level AlertLevel
	Next  Notifier
}

func (f MinLevel) Send(ctx context.Context, alert Alert) error {
	if rank(alert.Level) < rank(f.Level) {
		return nil
	}
	return f.Next.Send(ctx, alert)
}

func rank(l AlertLevel) int {
	switch l {
	case AlertWarning:
		return 1
	case AlertCritical:
		return 2
	}
	return 0
}
