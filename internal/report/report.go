// Package report surfaces what the decision loop sees: a console view, a
// WebSocket hub, a Redis pub/sub feed, the decision journal and alerts.
// Every sink implements strategy.Reporter; Multi fans out to several.
package report

import (
	"context"
	"encoding/json"
	"time"

	"tabot/internal/strategy"
)

// Event types.
const (
	TypeSnapshot = "snapshot"
	TypeProgress = "progress"
	TypeDecision = "decision"
)

// Event is the envelope pushed to WebSocket clients and Redis subscribers.
type Event struct {
	Type     string          `json:"type"`
	Strategy string          `json:"strategy"`
	Seq      int64           `json:"seq"`
	TS       time.Time       `json:"ts"`
	Data     json.RawMessage `json:"data"`
}

// decisionView adds the error text, which Decision does not marshal.
type decisionView struct {
	strategy.Decision
	Error string `json:"error,omitempty"`
}

func newEvent(typ, strategyName string, v interface{}) (Event, error) {
	if d, ok := v.(strategy.Decision); ok {
		v = decisionView{Decision: d, Error: d.ErrText()}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Strategy: strategyName, TS: time.Now().UTC(), Data: data}, nil
}

// Multi forwards every call to each reporter in order.
type Multi []strategy.Reporter

func (m Multi) Snapshot(ctx context.Context, s strategy.Snapshot) {
	for _, r := range m {
		r.Snapshot(ctx, s)
	}
}

func (m Multi) Progress(ctx context.Context, p strategy.Progress) {
	for _, r := range m {
		r.Progress(ctx, p)
	}
}

func (m Multi) Decision(ctx context.Context, d strategy.Decision) {
	for _, r := range m {
		r.Decision(ctx, d)
	}
}
