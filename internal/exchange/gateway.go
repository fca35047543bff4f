// Package exchange defines the gateway the decision loop trades through and
// ships a paper implementation backed by real or in-memory candles.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabot/internal/model"
)

// Gateway is everything the decision loop and the bracket executor need from
// an exchange. Implementations must be safe for use from one goroutine at a
// time; the loop never calls them concurrently.
type Gateway interface {
	CandleSource

	// Symbols lists the tradable symbols.
	Symbols(ctx context.Context) ([]string, error)

	// Account returns balances and open positions.
	Account(ctx context.Context) (model.Account, error)

	// SymbolConstraints returns the quantity and price filters of symbol.
	SymbolConstraints(ctx context.Context, symbol string) (model.SymbolConstraints, error)

	// PlaceOrder submits one leg.
	PlaceOrder(ctx context.Context, leg model.LegSpec) (model.OrderAck, error)

	// CancelOrder cancels one resting order.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// CancelOpenOrders cancels every resting order on symbol.
	CancelOpenOrders(ctx context.Context, symbol string) error
}

// CandleSource serves historical candles and the exchange clock.
type CandleSource interface {
	// Candles returns up to limit candles, oldest first. The last one may
	// still be forming.
	Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error)

	// ServerTime returns the exchange clock.
	ServerTime(ctx context.Context) (time.Time, error)
}

// Error is a failure reported by the exchange itself.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("exchange error %d: %s", e.Code, e.Message)
}

// Exchange error codes used by the paper gateway. They mirror Binance codes.
const (
	CodeUnknown             = -1000
	CodeInvalidSymbol       = -1121
	CodeInsufficientBalance = -2010
	CodeUnknownOrder        = -2011
	CodeReduceOnlyRejected  = -2022
)

// AsError extracts an exchange error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
