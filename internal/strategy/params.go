package strategy

import (
	"errors"
	"fmt"

	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/model"
	"tabot/internal/portfolio"
)

// DefaultMinVote is the share of agreeing rules needed to trade.
const DefaultMinVote = 0.75

// DefaultCandleCount is how many candles are fetched per symbol and cycle.
const DefaultCandleCount = 200

var (
	// ErrNoRules is returned when a strategy has no signal rules.
	ErrNoRules = errors.New("strategy: no signal rules")

	// ErrInvalidParams wraps every parameter validation failure.
	ErrInvalidParams = errors.New("strategy: invalid params")
)

// Params configures one decision loop.
type Params struct {
	Name      string
	Market    exchange.Market
	Timeframe model.Timeframe

	// OrderValuePct is the share of the wallet committed per bracket.
	OrderValuePct float64
	Risk          execution.RiskConfig
	Leverage      int
	Trailing      bool

	// MinVote in [0, 1]. Zero trades on any non-zero vote; configuration
	// files default it to DefaultMinVote.
	MinVote     float64
	CandleCount int

	// Symbols restricts trading; empty trades every symbol the gateway lists.
	Symbols []string

	Limits portfolio.RiskLimits
}

func (p *Params) withDefaults() {
	if p.CandleCount == 0 {
		p.CandleCount = DefaultCandleCount
	}
	if p.Leverage == 0 {
		p.Leverage = 1
	}
	if p.Risk.ATRPeriod > 0 && p.Risk.ATRFloorPct == 0 && p.Market == exchange.MarketFutures {
		p.Risk.ATRFloorPct = 1
	}
}

// Validate checks the params after defaults are applied.
func (p Params) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidParams)
	}
	if _, err := model.ParseTimeframe(p.Timeframe.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.MinVote < 0 || p.MinVote > 1 {
		return fmt.Errorf("%w: min vote %g outside [0, 1]", ErrInvalidParams, p.MinVote)
	}
	if p.CandleCount < 2 {
		return fmt.Errorf("%w: candle count %d below 2", ErrInvalidParams, p.CandleCount)
	}
	if err := p.execution().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func (p Params) execution() execution.Config {
	return execution.Config{
		Market:        p.Market,
		OrderValuePct: p.OrderValuePct,
		Leverage:      p.Leverage,
		Risk:          p.Risk,
		Trailing:      p.Trailing,
	}
}
