package model

import "time"

// Side is the order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// LegKind identifies one leg of a bracket.
type LegKind string

const (
	LegEntry      LegKind = "entry"
	LegStopLoss   LegKind = "stop-loss"
	LegTakeProfit LegKind = "take-profit"
	LegTrailing   LegKind = "trailing"
	LegClose      LegKind = "close"
)

// OrderType is the exchange order type a leg maps to.
type OrderType string

const (
	OrderMarket           OrderType = "MARKET"
	OrderStopMarket       OrderType = "STOP_MARKET"
	OrderTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
	OrderTrailingStop     OrderType = "TRAILING_STOP_MARKET"
	OrderStopLossLimit    OrderType = "STOP_LOSS_LIMIT"
	OrderTakeProfitLimit  OrderType = "TAKE_PROFIT_LIMIT"
)

// LegSpec is one order request sent to the exchange gateway.
type LegSpec struct {
	Symbol          string    `json:"symbol"`
	Kind            LegKind   `json:"kind"`
	Type            OrderType `json:"type"`
	Side            Side      `json:"side"`
	Quantity        float64   `json:"quantity"`
	StopPrice       float64   `json:"stop_price,omitempty"`
	LimitPrice      float64   `json:"limit_price,omitempty"`
	ActivationPrice float64   `json:"activation_price,omitempty"`
	CallbackRate    float64   `json:"callback_rate,omitempty"`
	Leverage        int       `json:"leverage,omitempty"`
	ReduceOnly      bool      `json:"reduce_only,omitempty"`
	ClientID        string    `json:"client_id,omitempty"`
}

// OrderAck is the gateway acknowledgement of a placed leg.
type OrderAck struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"` // NEW, FILLED
	FillPrice float64   `json:"fill_price,omitempty"`
	FilledQty float64   `json:"filled_qty,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenOrder is a resting order as reported by the gateway.
type OpenOrder struct {
	OrderID string  `json:"order_id"`
	Leg     LegSpec `json:"leg"`
}
