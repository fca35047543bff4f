package model

import (
	"testing"
	"time"
)

func TestClosedBefore_DropsFormingCandle(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, 3)
	for i := range candles {
		open := base.Add(time.Duration(i) * time.Hour)
		candles[i] = Candle{OpenTime: open, CloseTime: open.Add(time.Hour - time.Millisecond)}
	}

	now := base.Add(2*time.Hour + 5*time.Minute) // third bar still forming
	got := ClosedBefore(candles, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 closed candles, got %d", len(got))
	}

	got = ClosedBefore(candles, base.Add(3*time.Hour))
	if len(got) != 3 {
		t.Fatalf("expected all candles closed, got %d", len(got))
	}
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1m", time.Minute, true},
		{"15m", 15 * time.Minute, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{"1M", 30 * 24 * time.Hour, true},
		{"0h", 0, false},
		{"h", 0, false},
		{"5x", 0, false},
	}
	for _, tt := range tests {
		tf, err := ParseTimeframe(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("%s: err=%v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && tf.Duration() != tt.want {
			t.Errorf("%s: duration %v, want %v", tt.in, tf.Duration(), tt.want)
		}
	}
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	long := Position{Direction: Bullish, Quantity: 2, EntryPrice: 100, MarkPrice: 110}
	short := Position{Direction: Bearish, Quantity: 2, EntryPrice: 100, MarkPrice: 110}
	if got := long.UnrealizedPnL(); got != 20 {
		t.Errorf("long pnl = %f, want 20", got)
	}
	if got := short.UnrealizedPnL(); got != -20 {
		t.Errorf("short pnl = %f, want -20", got)
	}
}

func TestDirection_Side(t *testing.T) {
	if Bullish.Side() != SideBuy || Bearish.Side() != SideSell {
		t.Error("unexpected entry sides")
	}
	if SideBuy.Opposite() != SideSell {
		t.Error("opposite of BUY should be SELL")
	}
}
