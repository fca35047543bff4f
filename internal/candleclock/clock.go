// Package candleclock suspends the decision loop until the current candle of
// a timeframe closes on the exchange clock.
package candleclock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tabot/internal/model"
)

// DefaultBuffer is waited past the boundary so the exchange has published
// the closed candle.
const DefaultBuffer = 3 * time.Second

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// TimeSource reports the exchange clock.
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Clock computes candle-close boundaries for one timeframe. Boundaries are
// UTC-aligned: minutes and hours on the clock, days at midnight, weeks on
// Monday and months on the 1st.
type Clock struct {
	tf     model.Timeframe
	sched  cron.Schedule // nil for epoch-aligned intervals like 3d
	period time.Duration

	// Buffer is added after each boundary.
	Buffer time.Duration
}

// New builds the clock for tf.
func New(tf model.Timeframe) (*Clock, error) {
	if _, err := model.ParseTimeframe(tf.String()); err != nil {
		return nil, err
	}
	c := &Clock{tf: tf, period: tf.Duration(), Buffer: DefaultBuffer}

	spec, ok := cronSpec(tf)
	if ok {
		s, err := parser.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("candleclock: %s: %w", tf, err)
		}
		c.sched = s
	}
	return c, nil
}

func cronSpec(tf model.Timeframe) (string, bool) {
	n := tf.Count()
	switch tf.Unit() {
	case 'm':
		if 60%n == 0 {
			return fmt.Sprintf("0 */%d * * * *", n), true
		}
	case 'h':
		if 24%n == 0 {
			return fmt.Sprintf("0 0 */%d * * *", n), true
		}
	case 'd':
		if n == 1 {
			return "0 0 0 * * *", true
		}
	case 'w':
		if n == 1 {
			return "0 0 0 * * 1", true
		}
	case 'M':
		if n == 1 {
			return "0 0 0 1 * *", true
		}
	}
	return "", false
}

// NextClose returns the first candle boundary strictly after now.
func (c *Clock) NextClose(now time.Time) time.Time {
	now = now.UTC()
	if c.sched != nil {
		return c.sched.Next(now)
	}
	// intervals cron cannot express are aligned to the Unix epoch
	p := c.period.Milliseconds()
	ms := now.UnixMilli()
	return time.UnixMilli((ms/p + 1) * p).UTC()
}

// Wait blocks until the next boundary (plus Buffer) on src's clock. It
// returns ctx.Err() if ctx is cancelled first.
func (c *Clock) Wait(ctx context.Context, src TimeSource) error {
	now, err := src.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("candleclock: server time: %w", err)
	}
	next := c.NextClose(now).Add(c.Buffer)
	d := next.Sub(now)
	slog.Debug("waiting for candle close", "timeframe", c.tf.String(), "until", next, "sleep", d)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
