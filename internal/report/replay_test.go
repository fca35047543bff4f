package report

import "testing"

func TestReplayBuffer_Since(t *testing.T) {
	rb := newReplayBuffer(100)
	for i := int64(1); i <= 10; i++ {
		rb.push(i, []byte("msg"))
	}

	got := rb.since(6)
	if len(got) != 4 {
		t.Fatalf("since(6): expected 4, got %d", len(got))
	}
	for i, e := range got {
		if want := int64(i) + 7; e.Seq != want {
			t.Errorf("entry[%d].Seq = %d, want %d", i, e.Seq, want)
		}
	}
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := newReplayBuffer(5)

	// first 3 are evicted
	for i := int64(1); i <= 8; i++ {
		rb.push(i, []byte("msg"))
	}

	if rb.len() != 5 {
		t.Fatalf("len() = %d, want 5", rb.len())
	}
	got := rb.since(0)
	if len(got) != 5 || got[0].Seq != 4 || got[4].Seq != 8 {
		t.Fatalf("since(0) = %+v, want seqs 4..8", got)
	}
}

func TestReplayBuffer_Empty(t *testing.T) {
	if got := newReplayBuffer(0).since(0); len(got) != 0 {
		t.Fatalf("empty buffer returned %d entries", len(got))
	}
}
