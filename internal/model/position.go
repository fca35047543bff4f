package model

// Position is an open exposure on one symbol.
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	MarkPrice  float64   `json:"mark_price"`
}

// UnrealizedPnL computes unrealized profit/loss in the quote asset.
func (p *Position) UnrealizedPnL() float64 {
	return (p.MarkPrice - p.EntryPrice) * p.Quantity * p.Direction.Sign()
}

// Notional returns the position value at the mark price.
func (p *Position) Notional() float64 {
	return p.MarkPrice * p.Quantity
}

// Account is the snapshot the decision loop refreshes every cycle.
// For futures WalletBalance is the cross wallet balance; for spot it is the
// quote-equivalent value of every asset held, so Spot is set and unrealized
// PnL is already inside it.
type Account struct {
	Asset            string              `json:"asset"`
	Spot             bool                `json:"spot"`
	WalletBalance    float64             `json:"wallet_balance"`
	AvailableBalance float64             `json:"available_balance"`
	CanTrade         bool                `json:"can_trade"`
	Positions        map[string]Position `json:"positions"`
}

// HasPosition reports whether symbol carries a non-zero position.
func (a *Account) HasPosition(symbol string) bool {
	p, ok := a.Positions[symbol]
	return ok && p.Quantity != 0
}

// SymbolConstraints are the exchange filters that sizing and pricing must honor.
type SymbolConstraints struct {
	Symbol      string  `json:"symbol"`
	BaseAsset   string  `json:"base_asset"`
	QuoteAsset  string  `json:"quote_asset"`
	MinQuantity float64 `json:"min_quantity"`
	MaxQuantity float64 `json:"max_quantity"`
	StepSize    float64 `json:"step_size"`
	TickSize    float64 `json:"tick_size"`
	MinNotional float64 `json:"min_notional"`
}
