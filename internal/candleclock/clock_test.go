package candleclock

import (
	"context"
	"errors"
	"testing"
	"time"

	"tabot/internal/model"
)

type fixedTime time.Time

func (f fixedTime) ServerTime(ctx context.Context) (time.Time, error) { return time.Time(f), nil }

func TestNextClose(t *testing.T) {
	now := time.Date(2024, 3, 6, 13, 47, 12, 0, time.UTC) // a Wednesday
	tests := []struct {
		tf   model.Timeframe
		want time.Time
	}{
		{"1m", time.Date(2024, 3, 6, 13, 48, 0, 0, time.UTC)},
		{"15m", time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC)},
		{"1h", time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC)},
		{"4h", time.Date(2024, 3, 6, 16, 0, 0, 0, time.UTC)},
		{"1d", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)},
		{"1w", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"1M", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		c, err := New(tt.tf)
		if err != nil {
			t.Fatalf("%s: %v", tt.tf, err)
		}
		if got := c.NextClose(now); !got.Equal(tt.want) {
			t.Errorf("%s: next close %v, want %v", tt.tf, got, tt.want)
		}
	}
}

func TestNextClose_OnBoundaryAdvances(t *testing.T) {
	c, _ := New("1h")
	at := time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC)
	if got := c.NextClose(at); !got.Equal(at.Add(time.Hour)) {
		t.Errorf("got %v", got)
	}
}

func TestNextClose_EpochAligned(t *testing.T) {
	c, err := New("3d")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 6, 13, 0, 0, 0, time.UTC)
	got := c.NextClose(now)
	if got.UnixMilli()%(3*24*time.Hour).Milliseconds() != 0 || !got.After(now) || got.Sub(now) > 72*time.Hour {
		t.Errorf("next close %v not a 3d epoch boundary after %v", got, now)
	}
}

func TestNew_RejectsBadTimeframe(t *testing.T) {
	if _, err := New("7x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestWait_ReturnsAtBoundary(t *testing.T) {
	c, _ := New("1m")
	c.Buffer = 0
	src := fixedTime(time.Date(2024, 3, 6, 13, 47, 59, 980_000_000, time.UTC))

	start := time.Now()
	if err := c.Wait(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > time.Second {
		t.Error("waited far longer than the 20ms to the boundary")
	}
}

func TestWait_Cancelled(t *testing.T) {
	c, _ := New("1d")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Wait(ctx, fixedTime(time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
