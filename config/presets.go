package config

import (
	"sort"

	"tabot/internal/exchange"
	"tabot/internal/signal"
)

// Built-in strategy presets.
const (
	PresetTechnicalAnalysis = "technical-analysis"
	PresetDivergences       = "divergences"
	PresetADXMACD           = "adx-macd"
	PresetMACDStochRSI      = "macd-stoch-rsi"
	PresetPump              = "pump"
)

type presetFunc func(m exchange.Market) StrategyConfig

var presets = map[string]presetFunc{
	PresetTechnicalAnalysis: technicalAnalysis,
	PresetDivergences:       divergences,
	PresetADXMACD:           adxMACD,
	PresetMACDStochRSI:      macdStochRSI,
	PresetPump:              pump,
}

// Preset returns the named preset shaped for market m.
func Preset(name string, m exchange.Market) (StrategyConfig, bool) {
	f, ok := presets[name]
	if !ok {
		return StrategyConfig{}, false
	}
	return f(m), true
}

// Presets lists the preset names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func boolPtr(b bool) *bool { return &b }

var atr14 = func(rr float64) RiskConfig { return RiskConfig{ATRPeriod: 14, RewardRatio: rr} }

// Spot presets drop leverage and trailing stops.
func forMarket(s StrategyConfig, m exchange.Market) StrategyConfig {
	if m == exchange.MarketSpot {
		s.Leverage = 1
		s.Trailing = boolPtr(false)
	}
	return s
}

func technicalAnalysis(m exchange.Market) StrategyConfig {
	s := StrategyConfig{
		Name:          "Technical Analysis",
		Timeframe:     "4h",
		OrderValuePct: 1,
		Risk:          atr14(3),
		Leverage:      5,
		Trailing:      boolPtr(true),
		Rules: []signal.RuleConfig{
			// trend filter
			{Indicator: "close", Base: "dema(50)"},
			{Indicator: "macd(12/26)", BuyLimit: signal.Float(0), SellLimit: signal.Float(0), Reverse: true},
			{Indicator: "macd-s(12/26/9)", CrossLimit: signal.Float(0)},
			{Indicator: "macd-h(12/26/9)", BuyLimit: signal.Float(0), SellLimit: signal.Float(0), Reverse: true},
			{Indicator: "rsi(14)", BuyLimit: signal.Float(30), SellLimit: signal.Float(70)},
		},
	}
	if m == exchange.MarketSpot {
		s.Timeframe = "1m"
		s.OrderValuePct = 2
	}
	return forMarket(s, m)
}

func divergences(m exchange.Market) StrategyConfig {
	return forMarket(StrategyConfig{
		Name:          "Divergences",
		Timeframe:     "15m",
		OrderValuePct: 5,
		Risk:          atr14(2),
		Leverage:      10,
		Trailing:      boolPtr(true),
		Rules: []signal.RuleConfig{
			{Indicator: "rsi(14)", Divergence: &signal.DivergenceConfig{}},
			{Indicator: "rsi(14)", BuyLimit: signal.Float(40), SellLimit: signal.Float(60)},
		},
	}, m)
}

func adxMACD(m exchange.Market) StrategyConfig {
	return forMarket(StrategyConfig{
		Name:          "ADX MACD",
		Timeframe:     "15m",
		OrderValuePct: 5,
		Risk:          atr14(2),
		Leverage:      10,
		Trailing:      boolPtr(true),
		Rules: []signal.RuleConfig{
			{Indicator: "macd-h(12/26/9)", CrossLimit: signal.Float(0)},
			// +DI above -DI is bullish
			{Indicator: "adx-diff(14)", BuyLimit: signal.Float(0), SellLimit: signal.Float(0), Reverse: true},
			{Indicator: "adx(14)", BuyLimit: signal.Float(25), Reverse: true},
			{Indicator: "adx(14)", SellLimit: signal.Float(25)},
		},
	}, m)
}

func macdStochRSI(m exchange.Market) StrategyConfig {
	return forMarket(StrategyConfig{
		Name:          "MACD Stoch RSI",
		Timeframe:     "6h",
		OrderValuePct: 5,
		Risk:          atr14(1.7),
		Leverage:      10,
		Trailing:      boolPtr(false),
		Rules: []signal.RuleConfig{
			{Indicator: "macd-h(12/26/9)", CrossLimit: signal.Float(0)},
			// %K above %D is bullish
			{Indicator: "stoch-diff(14)", BuyLimit: signal.Float(0), SellLimit: signal.Float(0), Reverse: true},
			{Indicator: "rsi(14)", BuyLimit: signal.Float(40), SellLimit: signal.Float(60)},
		},
	}, m)
}

// pump buys three consecutive candles rising at least 1% each. It is a
// spot strategy; futures keep leverage 1.
func pump(m exchange.Market) StrategyConfig {
	return forMarket(StrategyConfig{
		Name:          "Pump",
		Timeframe:     "5m",
		OrderValuePct: 2,
		Risk:          atr14(2),
		Leverage:      1,
		Trailing:      boolPtr(false),
		Rules: []signal.RuleConfig{
			{Pump: &signal.PumpConfig{Candles: 3, PercentageRise: 1}},
		},
	}, m)
}
