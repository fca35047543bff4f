package execution

import (
	"math"
	"testing"
	"time"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

// rangeSeries builds candles whose true range is always width.
func rangeSeries(n int, price, width float64) *indicator.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     price, Close: price, High: price + width/2, Low: price - width/2,
		}
	}
	return indicator.NewSeries("BTCUSDT", "1h", candles)
}

func TestComputeLevels_ATRScenario(t *testing.T) {
	cfg := RiskConfig{ATRPeriod: 14, RewardRatio: 3, ATRFloorPct: 1}
	rr, err := RiskRange(cfg, 100, rangeSeries(30, 100, 2))
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "risk range", rr, 2, 1e-9)

	lv, err := ComputeLevels(cfg, model.Bullish, 100, rr)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "stop-loss", lv.StopLoss, 98, 1e-9)
	assertClose(t, "take-profit", lv.TakeProfit, 106, 1e-9)

	lv, _ = ComputeLevels(cfg, model.Bearish, 100, rr)
	assertClose(t, "short stop-loss", lv.StopLoss, 102, 1e-9)
	assertClose(t, "short take-profit", lv.TakeProfit, 94, 1e-9)
}

func TestRiskRange_FuturesFloor(t *testing.T) {
	futures := RiskConfig{ATRPeriod: 14, RewardRatio: 2, ATRFloorPct: 1}
	spot := RiskConfig{ATRPeriod: 14, RewardRatio: 2}
	s := rangeSeries(30, 100, 0.5)

	rr, _ := RiskRange(futures, 100, s)
	assertClose(t, "floored", rr, 1, 1e-9)
	rr, _ = RiskRange(spot, 100, s)
	assertClose(t, "unfloored", rr, 0.5, 1e-9)
}

func TestRiskRange_Percent(t *testing.T) {
	rr, err := RiskRange(RiskConfig{Percent: 2, RewardRatio: 1}, 250, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "percent", rr, 5, 1e-9)

	if _, err := RiskRange(RiskConfig{ATRPeriod: 14}, 100, nil); err == nil {
		t.Error("expected error without series")
	}
}

func TestComputeLevels_RejectsNeutral(t *testing.T) {
	if _, err := ComputeLevels(RiskConfig{RewardRatio: 1}, model.Neutral, 100, 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestTrailingParams(t *testing.T) {
	cb, act := TrailingParams(model.Bullish, 100, 106, DefaultCallbackMin, DefaultCallbackMax)
	assertClose(t, "callback clamped", cb, 5, 1e-9)
	assertClose(t, "activation", act, (100+2*105)/3.0, 1e-9)

	cb, act = TrailingParams(model.Bearish, 100, 98.77, DefaultCallbackMin, DefaultCallbackMax)
	assertClose(t, "callback rounded", cb, 1.2, 1e-9)
	assertClose(t, "short activation", act, (100+2*98.8)/3.0, 1e-9)

	cb, _ = TrailingParams(model.Bullish, 100, 100.01, DefaultCallbackMin, DefaultCallbackMax)
	assertClose(t, "callback floor", cb, 0.1, 1e-9)
}

func TestQuantity(t *testing.T) {
	cons := model.SymbolConstraints{MinQuantity: 0.001, MaxQuantity: 100, StepSize: 0.001}
	tests := []struct {
		name     string
		balance  float64
		pct      float64
		leverage int
		price    float64
		want     float64
	}{
		{"futures leverage", 1000, 10, 5, 100, 5},
		{"floors to step", 1000, 10, 1, 30000, 0.003},
		{"clamps to min", 10, 1, 1, 30000, 0.001},
		{"clamps to max", 1e9, 100, 1, 1, 100},
	}
	for _, tt := range tests {
		got, err := Quantity(tt.balance, tt.pct, tt.leverage, tt.price, cons)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		assertClose(t, tt.name, got, tt.want, 1e-12)
	}

	if _, err := Quantity(100, 10, 1, 0, cons); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestRoundToTick(t *testing.T) {
	assertClose(t, "tick 0.01", RoundToTick(98.126, 0.01), 98.13, 1e-12)
	assertClose(t, "tick 0.5", RoundToTick(101.3, 0.5), 101.5, 1e-12)
	assertClose(t, "no tick", RoundToTick(1.234, 0), 1.234, 1e-12)
}
