package exchange

import (
	"context"
	"sync"
	"time"

	"tabot/internal/model"
)

// MemorySource serves candles loaded in memory. The clock is time.Now unless
// Now is set.
type MemorySource struct {
	mu      sync.RWMutex
	candles map[string][]model.Candle

	Now func() time.Time
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{candles: make(map[string][]model.Candle)}
}

// SetCandles replaces the candles of symbol.
func (m *MemorySource) SetCandles(symbol string, candles []model.Candle) {
	m.mu.Lock()
	m.candles[symbol] = candles
	m.mu.Unlock()
}

func (m *MemorySource) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candles[symbol]
	if !ok {
		return nil, &Error{Code: CodeInvalidSymbol, Message: "Invalid symbol."}
	}
	if limit > 0 && len(c) > limit {
		c = c[len(c)-limit:]
	}
	out := make([]model.Candle, len(c))
	copy(out, c)
	return out, nil
}

func (m *MemorySource) ServerTime(ctx context.Context) (time.Time, error) {
	if m.Now != nil {
		return m.Now(), nil
	}
	return time.Now().UTC(), nil
}
