// Package execution places bracketed orders: a market entry protected by a
// stop-loss and a take-profit (or trailing stop). Legs are placed in order
// and, if any leg after the entry fails, the committed legs are unwound in
// reverse so no unprotected position is left behind.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tabot/internal/exchange"
	"tabot/internal/indicator"
	"tabot/internal/logger"
	"tabot/internal/model"
)

// ErrRollbackFailed means a bracket could not be unwound and the account may
// hold an unprotected position. Callers must stop trading.
var ErrRollbackFailed = errors.New("execution: rollback failed")

// Status is the outcome of one bracket.
type Status string

const (
	StatusPlaced         Status = "PLACED"
	StatusRejected       Status = "REJECTED" // failed before the entry filled; nothing to unwind
	StatusRolledBack     Status = "ROLLED_BACK"
	StatusRollbackFailed Status = "ROLLBACK_FAILED"
)

// Config configures a BracketExecutor for one market.
type Config struct {
	Market        exchange.Market
	OrderValuePct float64
	Leverage      int
	Risk          RiskConfig

	// Trailing replaces the take-profit leg with a trailing stop (futures only).
	Trailing    bool
	CallbackMin float64
	CallbackMax float64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Market != exchange.MarketFutures && c.Market != exchange.MarketSpot:
		return fmt.Errorf("execution: unknown market %q", c.Market)
	case c.OrderValuePct <= 0 || c.OrderValuePct > 100:
		return fmt.Errorf("execution: order value must be in (0, 100], got %g", c.OrderValuePct)
	case c.Risk.RewardRatio <= 0:
		return fmt.Errorf("execution: reward ratio must be positive, got %g", c.Risk.RewardRatio)
	case c.Risk.ATRPeriod <= 0 && c.Risk.Percent <= 0:
		return errors.New("execution: risk needs an ATR period or a positive percent")
	case c.Trailing && c.Market == exchange.MarketSpot:
		return errors.New("execution: trailing stops are futures only")
	case c.Market == exchange.MarketSpot && c.Leverage > 1:
		return errors.New("execution: spot cannot use leverage")
	}
	return nil
}

// Request asks for one bracket.
type Request struct {
	Symbol         string
	Direction      model.Direction
	ReferencePrice float64
	Series         *indicator.Series
	Account        model.Account
}

// LegResult records one leg that reached the exchange.
type LegResult struct {
	Leg     model.LegSpec `json:"leg"`
	OrderID string        `json:"order_id"`
}

// Result is the outcome of Place. Err is nil only for StatusPlaced.
type Result struct {
	Symbol    string          `json:"symbol"`
	Direction model.Direction `json:"direction"`
	Status    Status          `json:"status"`
	Quantity  float64         `json:"quantity"`
	Reference float64         `json:"reference_price"`
	Levels    Levels          `json:"levels"`
	Legs      []LegResult     `json:"legs"`
	Err       error           `json:"-"`
}

// Hooks observe the executor; any field may be nil.
type Hooks struct {
	OnLeg     func(kind model.LegKind, err error)
	OnBracket func(status Status)
}

// BracketExecutor places brackets through a gateway.
type BracketExecutor struct {
	gw    exchange.Gateway
	cfg   Config
	hooks Hooks
}

// NewBracketExecutor validates cfg and returns an executor.
func NewBracketExecutor(gw exchange.Gateway, cfg Config, hooks Hooks) (*BracketExecutor, error) {
	if cfg.CallbackMin == 0 {
		cfg.CallbackMin = DefaultCallbackMin
	}
	if cfg.CallbackMax == 0 {
		cfg.CallbackMax = DefaultCallbackMax
	}
	if cfg.Leverage < 1 {
		cfg.Leverage = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BracketExecutor{gw: gw, cfg: cfg, hooks: hooks}, nil
}

// Place runs the bracket saga. It ignores cancellation of ctx once started:
// an interrupted bracket would leave legs half placed.
func (e *BracketExecutor) Place(ctx context.Context, req Request) Result {
	ctx = context.WithoutCancel(ctx)
	res := e.place(ctx, req)
	if e.hooks.OnBracket != nil {
		e.hooks.OnBracket(res.Status)
	}
	attrs := append(logger.LogWithTrace(ctx),
		"symbol", req.Symbol, "direction", req.Direction.String(), "status", string(res.Status))
	if res.Err != nil {
		slog.Warn("bracket not placed", append(attrs, "error", res.Err)...)
	} else {
		slog.Info("bracket placed", append(attrs, "qty", res.Quantity,
			"sl", res.Levels.StopLoss, "tp", res.Levels.TakeProfit)...)
	}
	return res
}

func (e *BracketExecutor) place(ctx context.Context, req Request) Result {
	res := Result{Symbol: req.Symbol, Direction: req.Direction, Reference: req.ReferencePrice, Status: StatusRejected}

	legs, err := e.plan(ctx, req, &res)
	if err != nil {
		res.Err = err
		return res
	}

	if err := e.gw.CancelOpenOrders(ctx, req.Symbol); err != nil {
		res.Err = fmt.Errorf("cancel stale orders on %s: %w", req.Symbol, err)
		return res
	}

	for i, leg := range legs {
		ack, err := e.gw.PlaceOrder(ctx, leg)
		if e.hooks.OnLeg != nil {
			e.hooks.OnLeg(leg.Kind, err)
		}
		if err != nil {
			err = fmt.Errorf("%s leg on %s: %w", leg.Kind, req.Symbol, err)
			if i == 0 {
				res.Err = err
				return res
			}
			return e.unwind(ctx, res, err)
		}
		if leg.Kind == model.LegEntry && ack.FilledQty > 0 {
			leg.Quantity = ack.FilledQty
		}
		res.Legs = append(res.Legs, LegResult{Leg: leg, OrderID: ack.OrderID})
	}

	res.Status = StatusPlaced
	return res
}

// plan computes levels and quantity and builds the legs in placement order.
func (e *BracketExecutor) plan(ctx context.Context, req Request, res *Result) ([]model.LegSpec, error) {
	if req.Direction == model.Neutral {
		return nil, errors.New("neutral direction")
	}
	cons, err := e.gw.SymbolConstraints(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("constraints for %s: %w", req.Symbol, err)
	}

	rr, err := RiskRange(e.cfg.Risk, req.ReferencePrice, req.Series)
	if err != nil {
		return nil, err
	}
	lv, err := ComputeLevels(e.cfg.Risk, req.Direction, req.ReferencePrice, rr)
	if err != nil {
		return nil, err
	}
	lv.StopLoss = RoundToTick(lv.StopLoss, cons.TickSize)
	lv.TakeProfit = RoundToTick(lv.TakeProfit, cons.TickSize)
	res.Levels = lv

	leverage := e.cfg.Leverage
	if e.cfg.Market == exchange.MarketSpot {
		leverage = 1
	}
	qty, err := Quantity(req.Account.WalletBalance, e.cfg.OrderValuePct, leverage, req.ReferencePrice, cons)
	if err != nil {
		return nil, err
	}
	res.Quantity = qty

	entrySide := req.Direction.Side()
	exitSide := entrySide.Opposite()
	ref := req.ReferencePrice

	entry := e.leg(req.Symbol, model.LegEntry, model.OrderMarket, entrySide, qty)
	entry.Leverage = leverage

	var sl, tp model.LegSpec
	if e.cfg.Market == exchange.MarketFutures {
		sl = e.leg(req.Symbol, model.LegStopLoss, model.OrderStopMarket, exitSide, qty)
		sl.StopPrice, sl.ReduceOnly = lv.StopLoss, true

		if e.cfg.Trailing {
			cb, act := TrailingParams(req.Direction, ref, lv.TakeProfit, e.cfg.CallbackMin, e.cfg.CallbackMax)
			tp = e.leg(req.Symbol, model.LegTrailing, model.OrderTrailingStop, exitSide, qty)
			tp.CallbackRate, tp.ActivationPrice, tp.ReduceOnly = cb, RoundToTick(act, cons.TickSize), true
		} else {
			tp = e.leg(req.Symbol, model.LegTakeProfit, model.OrderTakeProfitMarket, exitSide, qty)
			tp.StopPrice, tp.ReduceOnly = lv.TakeProfit, true
		}
	} else {
		// Spot protective legs are stop-limit orders triggered halfway
		// between the entry and the level.
		sl = e.leg(req.Symbol, model.LegStopLoss, model.OrderStopLossLimit, exitSide, qty)
		sl.StopPrice = RoundToTick((ref+lv.StopLoss)/2, cons.TickSize)
		sl.LimitPrice = lv.StopLoss

		tp = e.leg(req.Symbol, model.LegTakeProfit, model.OrderTakeProfitLimit, exitSide, qty)
		tp.StopPrice = RoundToTick((ref+lv.TakeProfit)/2, cons.TickSize)
		tp.LimitPrice = lv.TakeProfit
	}
	return []model.LegSpec{entry, sl, tp}, nil
}

func (e *BracketExecutor) leg(symbol string, kind model.LegKind, typ model.OrderType, side model.Side, qty float64) model.LegSpec {
	return model.LegSpec{
		Symbol:   symbol,
		Kind:     kind,
		Type:     typ,
		Side:     side,
		Quantity: qty,
		ClientID: uuid.NewString(),
	}
}

// unwind compensates committed legs in reverse: protective legs are
// cancelled and the entry is closed with a reduce-only market order.
func (e *BracketExecutor) unwind(ctx context.Context, res Result, cause error) Result {
	var errs []error
	for i := len(res.Legs) - 1; i >= 0; i-- {
		lr := res.Legs[i]
		if lr.Leg.Kind != model.LegEntry {
			if err := e.gw.CancelOrder(ctx, res.Symbol, lr.OrderID); err != nil {
				errs = append(errs, fmt.Errorf("cancel %s: %w", lr.Leg.Kind, err))
			}
			continue
		}
		closeLeg := e.leg(res.Symbol, model.LegClose, model.OrderMarket, lr.Leg.Side.Opposite(), lr.Leg.Quantity)
		closeLeg.ReduceOnly = e.cfg.Market == exchange.MarketFutures
		_, err := e.gw.PlaceOrder(ctx, closeLeg)
		if e.hooks.OnLeg != nil {
			e.hooks.OnLeg(model.LegClose, err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close entry: %w", err))
		}
	}

	if len(errs) > 0 {
		res.Status = StatusRollbackFailed
		res.Err = fmt.Errorf("%w: %w", ErrRollbackFailed, errors.Join(append([]error{cause}, errs...)...))
		return res
	}
	res.Status = StatusRolledBack
	res.Err = cause
	return res
}
