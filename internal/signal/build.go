package signal

import (
	"fmt"

	"tabot/internal/indicator"
)

// RuleConfig is one entry of a strategy's signal list as it appears in the
// strategy file. Which fields are set decides the rule kind.
type RuleConfig struct {
	Indicator  string   `yaml:"indicator" json:"indicator"`
	Base       string   `yaml:"base,omitempty" json:"base,omitempty"`
	BuyLimit   *float64 `yaml:"buy_limit,omitempty" json:"buy_limit,omitempty"`
	SellLimit  *float64 `yaml:"sell_limit,omitempty" json:"sell_limit,omitempty"`
	CrossLimit *float64 `yaml:"cross_limit,omitempty" json:"cross_limit,omitempty"`
	Rising     bool     `yaml:"rising,omitempty" json:"rising,omitempty"`
	Reverse    bool     `yaml:"reverse,omitempty" json:"reverse,omitempty"`

	Filter     *FilterConfig     `yaml:"filter,omitempty" json:"filter,omitempty"`
	Divergence *DivergenceConfig `yaml:"divergence,omitempty" json:"divergence,omitempty"`
	Pump       *PumpConfig       `yaml:"pump,omitempty" json:"pump,omitempty"`
}

// FilterConfig configures the consolidation veto of a threshold rule.
type FilterConfig struct {
	Indicator string  `yaml:"indicator" json:"indicator"`
	Limit     float64 `yaml:"limit" json:"limit"`
	Below     bool    `yaml:"below,omitempty" json:"below,omitempty"`
}

// DivergenceConfig turns the rule into a divergence check of Indicator
// against the close.
type DivergenceConfig struct {
	Window int `yaml:"window,omitempty" json:"window,omitempty"`
	Order  int `yaml:"order,omitempty" json:"order,omitempty"`
}

// PumpConfig turns the rule into a consecutive-rise check; Indicator is ignored.
type PumpConfig struct {
	Candles        int     `yaml:"candles" json:"candles"`
	PercentageRise float64 `yaml:"percentage_rise" json:"percentage_rise"`
}

// Build decides the rule kind once. Precedence: pump, divergence, price vs
// base, threshold, cross of a limit, cross of a base, slope.
func Build(cfg RuleConfig) (Evaluator, error) {
	if cfg.Pump != nil {
		if cfg.Pump.Candles <= 0 {
			return nil, fmt.Errorf("%w: pump needs a positive candle count", ErrInvalidRule)
		}
		return &PumpRule{Candles: cfg.Pump.Candles, RisePct: cfg.Pump.PercentageRise}, nil
	}

	key, err := indicator.ParseKey(cfg.Indicator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if cfg.Divergence != nil {
		r := &DivergenceRule{Key: key, Window: cfg.Divergence.Window, Order: cfg.Divergence.Order}
		if r.Window == 0 {
			r.Window = DefaultDivergenceWindow
		}
		if r.Order == 0 {
			r.Order = DefaultExtremaOrder
		}
		if r.Window < 2*r.Order+1 {
			return nil, fmt.Errorf("%w: divergence window %d too small for order %d", ErrInvalidRule, r.Window, r.Order)
		}
		return r, nil
	}

	var base indicator.Key
	if cfg.Base != "" {
		if base, err = indicator.ParseKey(cfg.Base); err != nil {
			return nil, fmt.Errorf("%w: base: %v", ErrInvalidRule, err)
		}
	}

	switch {
	case key == indicator.Close && cfg.Base != "":
		return &PriceRule{Base: base}, nil

	case cfg.BuyLimit != nil || cfg.SellLimit != nil:
		r := &ThresholdRule{Key: key, Buy: cfg.BuyLimit, Sell: cfg.SellLimit, Reverse: cfg.Reverse}
		if cfg.Filter != nil {
			fk, err := indicator.ParseKey(cfg.Filter.Indicator)
			if err != nil {
				return nil, fmt.Errorf("%w: filter: %v", ErrInvalidRule, err)
			}
			r.Filter = &Filter{Key: fk, Limit: cfg.Filter.Limit, Below: cfg.Filter.Below}
		}
		return r, nil

	case cfg.CrossLimit != nil:
		return &CrossLimitRule{Key: key, Limit: *cfg.CrossLimit, Reverse: cfg.Reverse}, nil

	case cfg.Base != "":
		return &CrossBaseRule{Key: key, Base: base, Reverse: cfg.Reverse}, nil

	case cfg.Rising:
		return &RisingRule{Key: key, Reverse: cfg.Reverse}, nil
	}
	return nil, fmt.Errorf("%w: %s has no condition", ErrInvalidRule, cfg.Indicator)
}

// BuildAll builds every rule, stopping at the first error.
func BuildAll(cfgs []RuleConfig) ([]Evaluator, error) {
	out := make([]Evaluator, 0, len(cfgs))
	for i, c := range cfgs {
		ev, err := Build(c)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Keys collects the columns every evaluator reads.
func Keys(evs []Evaluator) []indicator.Key {
	var keys []indicator.Key
	seen := make(map[indicator.Key]bool)
	for _, ev := range evs {
		for _, k := range ev.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Float returns a pointer to v, for building RuleConfig literals.
func Float(v float64) *float64 { return &v }
