package report

import "sync"

// replayCapacity bounds the decisions a reconnecting client can backfill.
const replayCapacity = 128

type replayEntry struct {
	Seq  int64
	Data []byte // encoded envelope
}

// replayBuffer is a fixed-size circular buffer of recent decision envelopes.
type replayBuffer struct {
	mu   sync.RWMutex
	buf  []replayEntry
	pos  int // next write position
	full bool
}

func newReplayBuffer(capacity int) *replayBuffer {
	if capacity <= 0 {
		capacity = replayCapacity
	}
	return &replayBuffer{buf: make([]replayEntry, capacity)}
}

// push overwrites the oldest entry when full. data must not be mutated
// afterwards.
func (rb *replayBuffer) push(seq int64, data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.pos] = replayEntry{Seq: seq, Data: data}
	rb.pos = (rb.pos + 1) % len(rb.buf)
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns entries with Seq > seq, oldest first.
func (rb *replayBuffer) since(seq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []replayEntry
	n := rb.len()
	for i := 0; i < n; i++ {
		e := rb.buf[rb.index(i)]
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

func (rb *replayBuffer) len() int {
	if rb.full {
		return len(rb.buf)
	}
	return rb.pos
}

// index converts a logical index (0 = oldest) to a physical one.
func (rb *replayBuffer) index(logical int) int {
	if rb.full {
		return (rb.pos + logical) % len(rb.buf)
	}
	return logical
}
