// Package strategy runs the decision loop: once per candle close it
// evaluates every rule on every tradable symbol, tallies a vote and hands
// decisive votes to the bracket executor.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tabot/internal/candleclock"
	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/indicator"
	"tabot/internal/logger"
	"tabot/internal/model"
	"tabot/internal/portfolio"
	"tabot/internal/signal"
)

// retryDelay separates a failed cycle from the next attempt.
const retryDelay = 5 * time.Second

// Clock blocks until the next candle boundary.
type Clock interface {
	NextClose(now time.Time) time.Time
	Wait(ctx context.Context, src candleclock.TimeSource) error
}

// Hooks observe the loop; any field may be nil.
type Hooks struct {
	OnCycle    func(d time.Duration)
	OnReading  func(rule string, dir model.Direction)
	OnVote     func(symbol string, value float64)
	OnDecision func(outcome Outcome)
}

// Option customizes a Loop.
type Option func(*Loop)

// WithReporter routes snapshots, progress and decisions to r.
func WithReporter(r Reporter) Option { return func(l *Loop) { l.reporter = r } }

// WithClock replaces the candle clock derived from the timeframe.
func WithClock(c Clock) Option { return func(l *Loop) { l.clock = c } }

// WithHooks installs loop hooks.
func WithHooks(h Hooks) Option { return func(l *Loop) { l.hooks = h } }

// WithExecutionHooks installs hooks on the bracket executor.
func WithExecutionHooks(h execution.Hooks) Option { return func(l *Loop) { l.execHooks = h } }

// WithComputeHook observes indicator computation time per series.
func WithComputeHook(fn func(time.Duration)) Option {
	return func(l *Loop) { l.onCompute = fn }
}

// Loop is one strategy bound to one market.
type Loop struct {
	params   Params
	gw       exchange.Gateway
	rules    []signal.Evaluator
	engine   *indicator.Engine
	executor *execution.BracketExecutor
	risk     *portfolio.RiskManager
	clock    Clock
	reporter Reporter

	hooks     Hooks
	execHooks execution.Hooks
	onCompute func(time.Duration)

	account model.Account
}

// New validates params and wires a loop. It fails fast on an empty rule
// set, bad params or an indicator key nothing can compute.
func New(p Params, gw exchange.Gateway, rules []signal.Evaluator, opts ...Option) (*Loop, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		params:   p,
		gw:       gw,
		rules:    rules,
		risk:     portfolio.NewRiskManager(p.Limits),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(l)
	}

	engine, err := indicator.NewEngine(signal.Keys(rules))
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", p.Name, err)
	}
	engine.OnCompute = l.onCompute
	l.engine = engine

	l.executor, err = execution.NewBracketExecutor(gw, p.execution(), l.execHooks)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", p.Name, err)
	}

	if l.clock == nil {
		c, err := candleclock.New(p.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", p.Name, err)
		}
		l.clock = c
	}
	return l, nil
}

// Params returns the params after defaults.
func (l *Loop) Params() Params { return l.params }

// Risk exposes the risk manager for status reporting.
func (l *Loop) Risk() *portfolio.RiskManager { return l.risk }

// Run cycles until ctx is cancelled or a bracket cannot be rolled back.
// Cancellation is a clean exit and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("strategy started",
		"strategy", l.params.Name,
		"market", string(l.params.Market),
		"timeframe", l.params.Timeframe.String(),
		"rules", len(l.rules),
		"min_vote", l.params.MinVote,
	)
	for {
		err := l.Cycle(ctx)
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			slog.Info("strategy stopped", "strategy", l.params.Name)
			return nil
		case errors.Is(err, execution.ErrRollbackFailed):
			slog.Error("strategy halted: unprotected position", "strategy", l.params.Name, "error", err)
			return err
		}

		slog.Warn("cycle failed, retrying", "strategy", l.params.Name, "error", err, "retry_in", retryDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
	}
}

// Cycle reports a snapshot, waits for the next candle close and decides.
func (l *Loop) Cycle(ctx context.Context) error {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(l.params.Name, time.Now()))

	if err := l.refresh(ctx); err != nil {
		slog.Warn("account refresh failed", append(logger.LogWithTrace(ctx), "error", err)...)
	}
	now := time.Now().UTC()
	l.reporter.Snapshot(ctx, Snapshot{
		Strategy:  l.params.Name,
		Market:    l.params.Market,
		Timeframe: l.params.Timeframe,
		Summary:   portfolio.Summarize(l.account, now),
		NextClose: l.clock.NextClose(now),
	})

	if err := l.clock.Wait(ctx, l.gw); err != nil {
		return err
	}
	return l.Decide(ctx)
}

// Decide evaluates every symbol once against the latest closed candles.
func (l *Loop) Decide(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if l.hooks.OnCycle != nil {
			l.hooks.OnCycle(time.Since(start))
		}
	}()

	if err := l.refresh(ctx); err != nil {
		return fmt.Errorf("strategy: refresh account: %w", err)
	}
	if !l.account.CanTrade {
		slog.Warn("account cannot trade, skipping cycle", logger.LogWithTrace(ctx)...)
		return nil
	}
	now, err := l.gw.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("strategy: server time: %w", err)
	}
	symbols, err := l.symbols(ctx)
	if err != nil {
		return fmt.Errorf("strategy: symbols: %w", err)
	}

	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.reporter.Progress(ctx, Progress{Strategy: l.params.Name, Symbol: sym, Index: i, Total: len(symbols)})

		d := l.decide(ctx, sym, now)
		if l.hooks.OnDecision != nil {
			l.hooks.OnDecision(d.Outcome)
		}
		l.reporter.Decision(ctx, d)

		if d.Outcome != OutcomeTraded {
			continue
		}
		if d.Result.Status == execution.StatusRollbackFailed {
			return d.Result.Err
		}
		if err := l.refresh(ctx); err != nil {
			slog.Warn("account refresh failed", append(logger.LogWithTrace(ctx), "error", err)...)
		}
	}
	return nil
}

func (l *Loop) decide(ctx context.Context, sym string, now time.Time) Decision {
	d := Decision{
		Strategy:  l.params.Name,
		Symbol:    sym,
		Timeframe: l.params.Timeframe,
		Outcome:   OutcomeHold,
		At:        now,
	}
	if l.account.HasPosition(sym) {
		d.Outcome, d.Reason = OutcomeSkipped, "position open"
		return d
	}

	candles, err := l.gw.Candles(ctx, sym, l.params.Timeframe, l.params.CandleCount)
	if err != nil {
		d.Outcome, d.Err = OutcomeError, fmt.Errorf("candles: %w", err)
		return d
	}
	closed := model.ClosedBefore(candles, now)
	if len(closed) < 2 {
		d.Outcome, d.Err = OutcomeError, fmt.Errorf("only %d closed candles", len(closed))
		return d
	}
	series, err := l.engine.Build(sym, l.params.Timeframe, closed)
	if err != nil {
		d.Outcome, d.Err = OutcomeError, err
		return d
	}
	last, _ := series.Last()
	d.Price = last.Close

	readings := make([]signal.Reading, len(l.rules))
	for i, r := range l.rules {
		readings[i] = r.Evaluate(series)
		if l.hooks.OnReading != nil {
			l.hooks.OnReading(r.Name(), readings[i].Direction)
		}
	}
	d.Vote = Tally(readings)
	if l.hooks.OnVote != nil {
		l.hooks.OnVote(sym, d.Vote.Value)
	}
	if !d.Vote.Passes(l.params.MinVote) {
		return d
	}

	if ok, reason := l.risk.CanOpen(sym); !ok {
		d.Outcome, d.Reason = OutcomeSkipped, reason
		return d
	}

	res := l.executor.Place(ctx, execution.Request{
		Symbol:         sym,
		Direction:      d.Vote.Direction(),
		ReferencePrice: d.Price,
		Series:         series,
		Account:        l.account,
	})
	d.Outcome, d.Result, d.Err = OutcomeTraded, &res, res.Err
	return d
}

func (l *Loop) refresh(ctx context.Context) error {
	acct, err := l.gw.Account(ctx)
	if err != nil {
		return err
	}
	l.account = acct
	l.risk.Observe(portfolio.Summarize(acct, time.Now().UTC()))
	return nil
}

func (l *Loop) symbols(ctx context.Context) ([]string, error) {
	if len(l.params.Symbols) > 0 {
		return l.params.Symbols, nil
	}
	return l.gw.Symbols(ctx)
}
