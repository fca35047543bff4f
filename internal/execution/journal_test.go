package execution

import (
	"testing"
	"time"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	j, err := NewJournal(MemoryJournal)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, sym := range []string{"BTCUSDT", "ETHUSDT"} {
		err := j.Record(DecisionRecord{
			Strategy: "technical-analysis", Symbol: sym, Timeframe: "4h",
			Vote: 0.75, Direction: "BULLISH", Reasons: []string{"price > dema(50)", "rsi(14) ≤ 30"},
			Status: string(StatusPlaced), Quantity: 1, DecidedAt: at.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := j.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Symbol != "ETHUSDT" {
		t.Errorf("newest first: got %s", recs[0].Symbol)
	}
	if len(recs[1].Reasons) != 2 || recs[1].Reasons[1] != "rsi(14) ≤ 30" {
		t.Errorf("reasons = %v", recs[1].Reasons)
	}
	if !recs[1].DecidedAt.Equal(at) {
		t.Errorf("decided_at = %v", recs[1].DecidedAt)
	}
}

func TestJournal_RecentForLimitsPerSymbol(t *testing.T) {
	j, err := NewJournal(MemoryJournal)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	for _, sym := range []string{"ETHUSDT", "BTCUSDT", "BTCUSDT", "BTCUSDT"} {
		if err := j.Record(DecisionRecord{Strategy: "ta", Symbol: sym, Timeframe: "1h", Status: "HOLD", DecidedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := j.RecentFor("ETHUSDT", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Symbol != "ETHUSDT" {
		t.Errorf("recs = %+v", recs)
	}
}
