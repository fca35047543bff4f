package model

import "time"

// Candle is one closed OHLCV bar for a single symbol and timeframe.
// Prices are float64: crypto quotes are not integral.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	CloseTime   time.Time `json:"close_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	QuoteVolume float64   `json:"quote_volume"`
	TradeCount  int64     `json:"trade_count"`
}

// ChangePct returns the open-to-close move in percent.
func (c *Candle) ChangePct() float64 {
	if c.Open == 0 {
		return 0
	}
	return (c.Close - c.Open) / c.Open * 100
}

// ClosedBefore returns the prefix of candles whose close time is not after t.
// Exchanges return the still-forming bar last; it must never reach a signal.
func ClosedBefore(candles []Candle, t time.Time) []Candle {
	n := len(candles)
	for n > 0 && candles[n-1].CloseTime.After(t) {
		n--
	}
	return candles[:n]
}
