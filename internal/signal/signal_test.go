package signal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

// seriesWith builds a series whose close column is closes and whose named
// columns are set verbatim.
func seriesWith(t *testing.T, closes []float64, cols map[string][]float64) *indicator.Series {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     c, High: c, Low: c, Close: c,
		}
	}
	s := indicator.NewSeries("TESTUSDT", "1h", candles)
	for name, v := range cols {
		if err := s.Set(indicator.MustKey(name), v); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return s
}

func mustBuild(t *testing.T, cfg RuleConfig) Evaluator {
	t.Helper()
	ev, err := Build(cfg)
	if err != nil {
		t.Fatalf("build %+v: %v", cfg, err)
	}
	return ev
}

func expect(t *testing.T, got Reading, dir model.Direction, contains ...string) {
	t.Helper()
	if got.Direction != dir {
		t.Fatalf("direction = %v, want %v (desc %q)", got.Direction, dir, got.Description)
	}
	if dir == model.Neutral && got.Description != "" {
		t.Fatalf("neutral reading carries description %q", got.Description)
	}
	for _, c := range contains {
		if !strings.Contains(got.Description, c) {
			t.Errorf("description %q does not contain %q", got.Description, c)
		}
	}
}

func TestThreshold_OversoldRSI(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "rsi(14)", BuyLimit: Float(30), SellLimit: Float(70)})
	s := seriesWith(t, []float64{1, 1}, map[string][]float64{"rsi(14)": {40, 25}})
	got := ev.Evaluate(s)
	expect(t, got, model.Bullish, "30")
	if got.Description != "rsi(14) ≤ 30" {
		t.Errorf("description = %q", got.Description)
	}

	s = seriesWith(t, []float64{1, 1}, map[string][]float64{"rsi(14)": {60, 75}})
	expect(t, ev.Evaluate(s), model.Bearish, "70")

	s = seriesWith(t, []float64{1, 1}, map[string][]float64{"rsi(14)": {60, 50}})
	expect(t, ev.Evaluate(s), model.Neutral)
}

func TestThreshold_Reverse(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "adx(14)", BuyLimit: Float(25), Reverse: true})
	s := seriesWith(t, []float64{1}, map[string][]float64{"adx(14)": {30}})
	expect(t, ev.Evaluate(s), model.Bullish, "adx(14) ≥ 25")

	s = seriesWith(t, []float64{1}, map[string][]float64{"adx(14)": {20}})
	expect(t, ev.Evaluate(s), model.Neutral)
}

func TestThreshold_FilterVetoes(t *testing.T) {
	ev := mustBuild(t, RuleConfig{
		Indicator: "adx-diff(14)", BuyLimit: Float(0), SellLimit: Float(0), Reverse: true,
		Filter: &FilterConfig{Indicator: "adx(14)", Limit: 20},
	})
	weak := seriesWith(t, []float64{1}, map[string][]float64{"adx-diff(14)": {12}, "adx(14)": {15}})
	expect(t, ev.Evaluate(weak), model.Neutral)

	strong := seriesWith(t, []float64{1}, map[string][]float64{"adx-diff(14)": {12}, "adx(14)": {28}})
	expect(t, ev.Evaluate(strong), model.Bullish, "adx(14) > 20")
}

func TestCrossLimit_MACDHistogram(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "macd-h(12/26/9)", CrossLimit: Float(0)})
	up := seriesWith(t, []float64{1, 1}, map[string][]float64{"macd-h(12/26/9)": {-0.5, 0.3}})
	expect(t, ev.Evaluate(up), model.Bullish, "crossed up")

	down := seriesWith(t, []float64{1, 1}, map[string][]float64{"macd-h(12/26/9)": {0.3, -0.5}})
	expect(t, ev.Evaluate(down), model.Bearish, "crossed down")

	flat := seriesWith(t, []float64{1, 1}, map[string][]float64{"macd-h(12/26/9)": {0.3, 0.5}})
	expect(t, ev.Evaluate(flat), model.Neutral)
}

func TestCrossLimit_ReverseFlipsDirection(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "macd(12/26)", CrossLimit: Float(0), Reverse: true})
	up := seriesWith(t, []float64{1, 1}, map[string][]float64{"macd(12/26)": {-1, 1}})
	expect(t, ev.Evaluate(up), model.Bearish, "crossed up")
}

func TestCrossBase_StochasticLines(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "stoch-k(14)", Base: "stoch-d(14)"})
	s := seriesWith(t, []float64{1, 1}, map[string][]float64{
		"stoch-k(14)": {20, 35},
		"stoch-d(14)": {25, 30},
	})
	expect(t, ev.Evaluate(s), model.Bullish, "stoch-k(14) crossed up stoch-d(14)")

	s = seriesWith(t, []float64{1, 1}, map[string][]float64{
		"stoch-k(14)": {35, 20},
		"stoch-d(14)": {30, 25},
	})
	expect(t, ev.Evaluate(s), model.Bearish, "crossed down")
}

func TestPriceRule(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "price", Base: "dema(50)"})
	s := seriesWith(t, []float64{100, 105}, map[string][]float64{"dema(50)": {101, 102}})
	expect(t, ev.Evaluate(s), model.Bullish, "price > dema(50)")

	s = seriesWith(t, []float64{100, 99}, map[string][]float64{"dema(50)": {101, 102}})
	expect(t, ev.Evaluate(s), model.Bearish, "price < dema(50)")

	s = seriesWith(t, []float64{100, 102}, map[string][]float64{"dema(50)": {101, 102}})
	expect(t, ev.Evaluate(s), model.Neutral)
}

func TestRisingRule(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Indicator: "price", Rising: true})
	expect(t, ev.Evaluate(seriesWith(t, []float64{1, 2}, nil)), model.Bullish, "price rising")
	expect(t, ev.Evaluate(seriesWith(t, []float64{2, 1}, nil)), model.Bearish, "price falling")
	expect(t, ev.Evaluate(seriesWith(t, []float64{2, 2}, nil)), model.Neutral)
}

func TestRules_ShortSeriesIsNeutral(t *testing.T) {
	cfgs := []RuleConfig{
		{Indicator: "macd-h(12/26/9)", CrossLimit: Float(0)},
		{Indicator: "stoch-k(14)", Base: "stoch-d(14)"},
		{Indicator: "price", Rising: true},
		{Indicator: "rsi(14)", Divergence: &DivergenceConfig{}},
	}
	one := seriesWith(t, []float64{5}, nil)
	for _, c := range cfgs {
		expect(t, mustBuild(t, c).Evaluate(one), model.Neutral)
	}
}

func TestBuild_Precedence(t *testing.T) {
	tests := []struct {
		cfg  RuleConfig
		want string
	}{
		{RuleConfig{Indicator: "price", Base: "ema(20)", Rising: true}, "*signal.PriceRule"},
		{RuleConfig{Indicator: "rsi(14)", BuyLimit: Float(30), CrossLimit: Float(50)}, "*signal.ThresholdRule"},
		{RuleConfig{Indicator: "rsi(14)", CrossLimit: Float(50), Base: "ema(3)-rsi(14)"}, "*signal.CrossLimitRule"},
		{RuleConfig{Indicator: "rsi(14)", Base: "ema(3)-rsi(14)", Rising: true}, "*signal.CrossBaseRule"},
		{RuleConfig{Indicator: "rsi(14)", Rising: true}, "*signal.RisingRule"},
		{RuleConfig{Indicator: "rsi(14)", Divergence: &DivergenceConfig{}, BuyLimit: Float(1)}, "*signal.DivergenceRule"},
		{RuleConfig{Pump: &PumpConfig{Candles: 3, PercentageRise: 1}}, "*signal.PumpRule"},
	}
	for _, tt := range tests {
		ev := mustBuild(t, tt.cfg)
		if got := typeName(ev); got != tt.want {
			t.Errorf("%+v: built %s, want %s", tt.cfg, got, tt.want)
		}
	}
}

func typeName(ev Evaluator) string {
	switch ev.(type) {
	case *PriceRule:
		return "*signal.PriceRule"
	case *ThresholdRule:
		return "*signal.ThresholdRule"
	case *CrossLimitRule:
		return "*signal.CrossLimitRule"
	case *CrossBaseRule:
		return "*signal.CrossBaseRule"
	case *RisingRule:
		return "*signal.RisingRule"
	case *DivergenceRule:
		return "*signal.DivergenceRule"
	case *PumpRule:
		return "*signal.PumpRule"
	}
	return "unknown"
}

func TestBuild_Errors(t *testing.T) {
	bad := []RuleConfig{
		{Indicator: "rsi(14)"},
		{Indicator: "nope(3)", Rising: true},
		{Indicator: "rsi(14)", Base: "bad"},
		{Pump: &PumpConfig{}},
		{Indicator: "rsi(14)", Divergence: &DivergenceConfig{Window: 5, Order: 5}},
		{Indicator: "adx-diff(14)", BuyLimit: Float(0), Filter: &FilterConfig{Indicator: "??"}},
	}
	for _, c := range bad {
		if _, err := Build(c); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("%+v: err = %v, want ErrInvalidRule", c, err)
		}
	}
}

func TestKeys_Deduplicates(t *testing.T) {
	evs, err := BuildAll([]RuleConfig{
		{Indicator: "stoch-k(14)", Base: "stoch-d(14)"},
		{Indicator: "stoch-k(14)", BuyLimit: Float(20)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(Keys(evs)); got != 2 {
		t.Errorf("expected 2 unique keys, got %d", got)
	}
}

func TestPump(t *testing.T) {
	ev := mustBuild(t, RuleConfig{Pump: &PumpConfig{Candles: 2, PercentageRise: 2}})
	candles := []model.Candle{
		{Open: 100, Close: 90},
		{Open: 100, Close: 103},
		{Open: 103, Close: 106},
	}
	s := indicator.NewSeries("PUMPUSDT", "5m", candles)
	expect(t, ev.Evaluate(s), model.Bullish, "2 candles")

	candles[2].Close = 104
	s = indicator.NewSeries("PUMPUSDT", "5m", candles)
	expect(t, ev.Evaluate(s), model.Neutral)
}
