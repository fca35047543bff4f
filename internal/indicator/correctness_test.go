package indicator

import (
	"math"
	"testing"
	"time"

	"tabot/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func candlesFromCloses(closes ...float64) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		open := base.Add(time.Duration(i) * time.Hour)
		out[i] = model.Candle{
			OpenTime: open, CloseTime: open.Add(time.Hour - time.Millisecond),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func mustResolve(t *testing.T, s *Series, k Key) []float64 {
	t.Helper()
	v, err := s.Resolve(k)
	if err != nil {
		t.Fatalf("resolve %s: %v", k, err)
	}
	return v
}

// ────────────────────────────────────────────────────────────
// Moving averages
// ────────────────────────────────────────────────────────────

func TestEMA_AlphaOneOverPeriod(t *testing.T) {
	// alpha = 1/2, seeded with the first close:
	// 10 -> 10, 20 -> 15, 30 -> 22.5
	s := NewSeries("T", "1h", candlesFromCloses(10, 20, 30))
	got := mustResolve(t, s, NewEMA(2).Key())
	for i, want := range []float64{10, 15, 22.5} {
		assertClose(t, "ema(2)", got[i], want, 1e-9)
	}
}

func TestEMA_OverIndicatorSource(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(10, 11, 12, 11, 13))
	k := MustKey("ema(3)-rsi(14)")
	got := mustResolve(t, s, k)
	rsi, _ := s.Column(MustKey("rsi(14)"))
	if want := ewm(rsi, 3); got[4] != want[4] {
		t.Errorf("ema of rsi: got %f, want %f", got[4], want[4])
	}
}

func TestDEMA_IsEMAOfEMA(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(1, 2, 3, 4, 5, 6))
	got := mustResolve(t, s, NewDEMA(3).Key())
	closes, _ := s.Column(Close)
	want := ewm(ewm(closes, 3), 3)
	for i := range want {
		assertClose(t, "dema(3)", got[i], want[i], 1e-12)
	}
}

func TestSMA_ShortHistoryUsesAvailableRows(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(1, 2, 3, 4, 5))
	got := mustResolve(t, s, NewSMA(3).Key())
	for i, want := range []float64{1, 1.5, 2, 3, 4} {
		assertClose(t, "sma(3)", got[i], want, 1e-12)
	}
}

// ────────────────────────────────────────────────────────────
// Oscillators
// ────────────────────────────────────────────────────────────

func TestMACD_ConstantPriceConverges(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(constant(60, 100)...))
	m := NewMACD(12, 26, 9)
	if _, err := m.Compute(s); err != nil {
		t.Fatal(err)
	}
	hist, _ := s.Column(m.HistogramKey())
	line, _ := s.Column(m.LineKey())
	assertClose(t, "macd-h", hist[len(hist)-1], 0, 1e-9)
	assertClose(t, "macd", line[len(line)-1], 0, 1e-9)
}

func TestMACD_HistogramIsLineMinusSignal(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(10, 12, 11, 14, 13, 17, 16, 15))
	m := NewMACD(3, 6, 2)
	m.Compute(s)
	line, _ := s.Column(m.LineKey())
	sig, _ := s.Column(m.SignalKey())
	hist, _ := s.Column(m.HistogramKey())
	for i := range hist {
		assertClose(t, "macd-h", hist[i], line[i]-sig[i], 1e-12)
	}
}

func TestRSI_EdgeValues(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(constant(30, 50)...))
	rsi := mustResolve(t, s, NewRSI(14).Key())
	if rsi[len(rsi)-1] != 100 {
		t.Errorf("constant price: rsi = %f, want 100", rsi[len(rsi)-1])
	}

	// period 1 makes the average the raw move: up then down
	s = NewSeries("T", "1h", candlesFromCloses(10, 11, 10))
	rsi = mustResolve(t, s, NewRSI(1).Key())
	assertClose(t, "rsi after up", rsi[1], 100, 1e-9)
	assertClose(t, "rsi after down", rsi[2], 0, 1e-9)
}

func TestRSI_Bounded(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(10, 13, 9, 15, 14, 8, 12, 20, 3))
	for i, v := range mustResolve(t, s, NewRSI(3).Key()) {
		if v < 0 || v > 100 {
			t.Errorf("row %d: rsi %f out of [0,100]", i, v)
		}
	}
}

func TestStochastic_ConstantPrice(t *testing.T) {
	candles := candlesFromCloses(constant(20, 7)...)
	for i := range candles {
		candles[i].High, candles[i].Low = 7, 7
	}
	s := NewSeries("T", "1h", candles)
	st := NewStochastic(14, 3)
	st.Compute(s)
	k, _ := s.Column(st.KKey())
	diff, _ := s.Column(st.DiffKey())
	assertClose(t, "stoch-k", k[19], 50, 1e-12)
	assertClose(t, "stoch-diff", diff[19], 0, 1e-12)
}

func TestStochastic_CloseAtHigh(t *testing.T) {
	candles := candlesFromCloses(10, 11, 12)
	candles[2].High = 12
	s := NewSeries("T", "1h", candles)
	st := NewStochastic(3, 3)
	st.Compute(s)
	k, _ := s.Column(st.KKey())
	// lowest low 9, highest high 12, close 12
	assertClose(t, "stoch-k", k[2], 100, 1e-9)
}

// ────────────────────────────────────────────────────────────
// Trend & volatility
// ────────────────────────────────────────────────────────────

func TestATR_TrueRangeUsesPreviousClose(t *testing.T) {
	candles := []model.Candle{
		{High: 12, Low: 10, Close: 11},
		{High: 15, Low: 14, Close: 14.5}, // gap: |15-11| = 4
	}
	got := ATRValues(candles, 2)
	assertClose(t, "atr row 0", got[0], 2, 1e-12)
	assertClose(t, "atr row 1", got[1], 3, 1e-12)
}

func TestATR_Column(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(constant(20, 100)...))
	atr := mustResolve(t, s, MustKey("atr(14)"))
	assertClose(t, "atr(14)", atr[19], 2, 1e-12)
}

func TestADX_SteadyUptrend(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := NewSeries("T", "1h", candlesFromCloses(closes...))
	a := NewADX(14)
	if _, err := a.Compute(s); err != nil {
		t.Fatal(err)
	}
	diff, _ := s.Column(a.DiffKey())
	adx, _ := s.Column(a.ADXKey())
	minus, _ := s.Column(a.MinusDIKey())
	assertClose(t, "-di", minus[39], 0, 1e-12)
	assertClose(t, "adx-diff", diff[39], 100, 1e-9)
	assertClose(t, "adx", adx[39], 100, 1e-9)
}

func TestADX_DiffBounded(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(10, 14, 9, 16, 12, 8, 15, 20, 3, 11))
	a := NewADX(3)
	a.Compute(s)
	diff, _ := s.Column(a.DiffKey())
	for i, v := range diff {
		if v < -100 || v > 100 {
			t.Errorf("row %d: adx-diff %f out of [-100,100]", i, v)
		}
	}
}

func TestBollinger_ConstantPriceCollapses(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(constant(30, 42)...))
	b := NewBollinger(20, 2)
	b.Compute(s)
	lo, _ := s.Column(b.LowerKey())
	up, _ := s.Column(b.UpperKey())
	assertClose(t, "bb-l", lo[29], 42, 1e-9)
	assertClose(t, "bb-u", up[29], 42, 1e-9)
}

func TestBollinger_BandsStraddleMiddle(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(1, 5, 2, 8, 3, 9, 4))
	b := NewBollinger(3, 2)
	b.Compute(s)
	lo, _ := s.Column(b.LowerKey())
	mid, _ := s.Column(b.MiddleKey())
	up, _ := s.Column(b.UpperKey())
	if lo[0] != mid[0] || up[0] != mid[0] {
		t.Errorf("single sample: bands should equal middle")
	}
	for i := 1; i < len(mid); i++ {
		if !(lo[i] <= mid[i] && mid[i] <= up[i]) {
			t.Errorf("row %d: %f <= %f <= %f violated", i, lo[i], mid[i], up[i])
		}
	}
}

// ────────────────────────────────────────────────────────────
// Column contract
// ────────────────────────────────────────────────────────────

func TestCompute_Idempotent(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(3, 5, 4, 8, 6, 9, 7, 11))
	m := NewMACD(3, 6, 2)
	m.Compute(s)
	first := append([]float64(nil), mustResolve(t, s, m.HistogramKey())...)
	m.Compute(s)
	second, _ := s.Column(m.HistogramKey())
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d changed: %f -> %f", i, first[i], second[i])
		}
	}
}

func TestColumns_NoLookahead(t *testing.T) {
	closes := []float64{10, 12, 9, 14, 13, 17, 11, 15, 16, 12, 18, 14}
	full := NewSeries("T", "1h", candlesFromCloses(closes...))
	prefix := NewSeries("T", "1h", candlesFromCloses(closes[:7]...))

	keys := []string{"ema(4)", "dema(4)", "sma(4)", "macd-h(3/6/2)", "macd-ma(3/6/2)",
		"rsi(4)", "stoch-d(4)", "adx(4)", "adx-diff(4)", "atr(4)", "bb-u(4)"}
	for _, name := range keys {
		k := MustKey(name)
		a := mustResolve(t, full, k)
		b := mustResolve(t, prefix, k)
		for i := range b {
			assertClose(t, name, a[i], b[i], 1e-12)
		}
	}
}

func TestSeries_SetRejectsWrongLength(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(1, 2, 3))
	if err := s.Set(NewSMA(2).Key(), []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestSeries_Value(t *testing.T) {
	s := NewSeries("T", "1h", candlesFromCloses(1, 2, 3))
	if v, ok := s.Value(Close, 0); !ok || v != 3 {
		t.Errorf("latest close: got %f,%v", v, ok)
	}
	if v, ok := s.Value(Close, 1); !ok || v != 2 {
		t.Errorf("prior close: got %f,%v", v, ok)
	}
	if _, ok := s.Value(Close, 3); ok {
		t.Error("expected missing row")
	}
}
