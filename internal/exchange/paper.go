package exchange

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tabot/internal/model"
)

// Market selects futures or spot accounting.
type Market string

const (
	MarketFutures Market = "futures"
	MarketSpot    Market = "spot"
)

// PaperConfig configures the paper gateway.
type PaperConfig struct {
	Market          Market
	QuoteAsset      string
	StartingBalance float64
	SlippageBps     float64 // e.g., 5 = 0.05%
	Symbols         []string
	Constraints     map[string]model.SymbolConstraints
}

// Fill is one simulated market execution.
type Fill struct {
	OrderID  string        `json:"order_id"`
	Leg      model.LegSpec `json:"leg"`
	Price    float64       `json:"price"`
	Slippage float64       `json:"slippage"`
	FilledAt time.Time     `json:"filled_at"`
}

// Paper simulates an exchange account without broker calls. Market legs
// fill at the last seen close plus slippage. Protective legs rest as open
// orders and trigger against the high and low of candles that open after
// they were placed; closing a position cancels its remaining legs.
type Paper struct {
	mu        sync.RWMutex
	cfg       PaperConfig
	source    CandleSource
	cash      float64
	positions map[string]*model.Position
	orders    map[string]*resting
	lastPrice map[string]float64
	lastOpen  map[string]time.Time
	fills     []Fill

	// FailOn, if set, is consulted before every order; a non-nil error
	// rejects the leg.
	FailOn func(leg model.LegSpec) error
}

// NewPaper creates a paper gateway pricing fills from source.
func NewPaper(cfg PaperConfig, source CandleSource) *Paper {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.Market == "" {
		cfg.Market = MarketFutures
	}
	return &Paper{
		cfg:       cfg,
		source:    source,
		cash:      cfg.StartingBalance,
		positions: make(map[string]*model.Position),
		orders:    make(map[string]*resting),
		lastPrice: make(map[string]float64),
		lastOpen:  make(map[string]time.Time),
	}
}

func (p *Paper) Symbols(ctx context.Context) ([]string, error) {
	out := make([]string, len(p.cfg.Symbols))
	copy(out, p.cfg.Symbols)
	return out, nil
}

func (p *Paper) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	candles, err := p.source.Candles(ctx, symbol, tf, limit)
	if err != nil {
		return nil, err
	}
	if n := len(candles); n > 0 {
		p.mu.Lock()
		p.trigger(symbol, candles)
		p.lastPrice[symbol] = candles[n-1].Close
		p.lastOpen[symbol] = candles[n-1].OpenTime
		if pos, ok := p.positions[symbol]; ok {
			pos.MarkPrice = candles[n-1].Close
		}
		p.mu.Unlock()
	}
	return candles, nil
}

func (p *Paper) ServerTime(ctx context.Context) (time.Time, error) {
	return p.source.ServerTime(ctx)
}

func (p *Paper) Account(ctx context.Context) (model.Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct := model.Account{
		Asset:            p.cfg.QuoteAsset,
		Spot:             p.cfg.Market == MarketSpot,
		WalletBalance:    p.cash,
		AvailableBalance: p.cash,
		CanTrade:         true,
		Positions:        make(map[string]model.Position, len(p.positions)),
	}
	for sym, pos := range p.positions {
		acct.Positions[sym] = *pos
		if p.cfg.Market == MarketSpot {
			acct.WalletBalance += pos.Notional()
		}
	}
	return acct, nil
}

func (p *Paper) SymbolConstraints(ctx context.Context, symbol string) (model.SymbolConstraints, error) {
	if c, ok := p.cfg.Constraints[symbol]; ok {
		return c, nil
	}
	return model.SymbolConstraints{
		Symbol:      symbol,
		QuoteAsset:  p.cfg.QuoteAsset,
		MinQuantity: 0.001,
		MaxQuantity: 1e6,
		StepSize:    0.001,
		TickSize:    0.01,
	}, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, leg model.LegSpec) (model.OrderAck, error) {
	if p.FailOn != nil {
		if err := p.FailOn(leg); err != nil {
			return model.OrderAck{}, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	orderID := uuid.NewString()
	now := time.Now().UTC()
	if leg.Type != model.OrderMarket {
		p.orders[orderID] = &resting{
			OpenOrder: model.OpenOrder{OrderID: orderID, Leg: leg},
			after:     p.lastOpen[leg.Symbol],
		}
		slog.Debug("paper order resting", "symbol", leg.Symbol, "kind", leg.Kind, "order_id", orderID)
		return model.OrderAck{OrderID: orderID, Symbol: leg.Symbol, Status: "NEW", CreatedAt: now}, nil
	}

	price, ok := p.lastPrice[leg.Symbol]
	if !ok || price <= 0 {
		return model.OrderAck{}, &Error{Code: CodeInvalidSymbol, Message: "no market price for " + leg.Symbol}
	}
	slip := price * p.cfg.SlippageBps / 10000
	if leg.Side == model.SideBuy {
		price += slip // buy higher
	} else {
		price -= slip // sell lower
	}

	if err := p.apply(leg, price); err != nil {
		return model.OrderAck{}, err
	}
	p.fills = append(p.fills, Fill{OrderID: orderID, Leg: leg, Price: price, Slippage: slip, FilledAt: now})
	slog.Info("paper fill", "symbol", leg.Symbol, "kind", leg.Kind, "side", leg.Side,
		"qty", leg.Quantity, "price", price, "order_id", orderID)

	return model.OrderAck{
		OrderID: orderID, Symbol: leg.Symbol, Status: "FILLED",
		FillPrice: price, FilledQty: leg.Quantity, CreatedAt: now,
	}, nil
}

// apply books a market fill against the position and cash. Caller holds mu.
func (p *Paper) apply(leg model.LegSpec, price float64) error {
	pos := p.positions[leg.Symbol]
	dir := model.Bullish
	if leg.Side == model.SideSell {
		dir = model.Bearish
	}

	if leg.ReduceOnly || (p.cfg.Market == MarketSpot && leg.Side == model.SideSell) {
		if pos == nil || pos.Direction == dir || pos.Quantity < leg.Quantity {
			if leg.ReduceOnly {
				return &Error{Code: CodeReduceOnlyRejected, Message: "ReduceOnly Order is rejected."}
			}
			return &Error{Code: CodeInsufficientBalance, Message: "Account has insufficient balance for requested action."}
		}
		if p.cfg.Market == MarketSpot {
			p.cash += leg.Quantity * price
		} else {
			p.cash += (price - pos.EntryPrice) * leg.Quantity * pos.Direction.Sign()
		}
		pos.Quantity -= leg.Quantity
		if pos.Quantity <= 0 {
			delete(p.positions, leg.Symbol)
		}
		return nil
	}

	if p.cfg.Market == MarketSpot {
		cost := leg.Quantity * price
		if cost > p.cash {
			return &Error{Code: CodeInsufficientBalance, Message: "Account has insufficient balance for requested action."}
		}
		p.cash -= cost
	}
	if pos == nil {
		p.positions[leg.Symbol] = &model.Position{
			Symbol: leg.Symbol, Direction: dir, Quantity: leg.Quantity,
			EntryPrice: price, MarkPrice: price,
		}
		return nil
	}
	total := pos.Quantity + leg.Quantity
	pos.EntryPrice = (pos.EntryPrice*pos.Quantity + price*leg.Quantity) / total
	pos.Quantity = total
	return nil
}

func (p *Paper) CancelOrder(ctx context.Context, symbol, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok || o.Leg.Symbol != symbol {
		return &Error{Code: CodeUnknownOrder, Message: "Unknown order sent."}
	}
	delete(p.orders, orderID)
	return nil
}

func (p *Paper) CancelOpenOrders(ctx context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, o := range p.orders {
		if o.Leg.Symbol == symbol {
			delete(p.orders, id)
		}
	}
	return nil
}

// OpenOrders returns the resting orders on symbol ("" for all), oldest id first.
func (p *Paper) OpenOrders(symbol string) []model.OpenOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []model.OpenOrder
	for _, o := range p.orders {
		if symbol == "" || o.Leg.Symbol == symbol {
			out = append(out, o.OpenOrder)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// Fills returns a snapshot of all fills.
func (p *Paper) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// resting is an untriggered protective leg. Only candles opening after
// after can trigger it.
type resting struct {
	model.OpenOrder
	after  time.Time
	active bool    // trailing: activation price reached
	peak   float64 // trailing: best price since activation
}

// trigger fills resting legs of symbol touched by candles, oldest candle
// first. Caller holds mu.
func (p *Paper) trigger(symbol string, candles []model.Candle) {
	for _, c := range candles {
		for _, o := range p.sortedResting(symbol) {
			if _, ok := p.orders[o.OrderID]; !ok {
				continue // cancelled by a sibling fill
			}
			if !c.OpenTime.After(o.after) {
				continue
			}
			price, hit := o.touched(c)
			if !hit {
				continue
			}
			delete(p.orders, o.OrderID)
			if err := p.apply(o.Leg, price); err != nil {
				slog.Warn("paper trigger rejected", "symbol", symbol, "kind", o.Leg.Kind, "order_id", o.OrderID, "error", err)
				continue
			}
			p.fills = append(p.fills, Fill{OrderID: o.OrderID, Leg: o.Leg, Price: price, FilledAt: c.OpenTime})
			slog.Info("paper trigger", "symbol", symbol, "kind", o.Leg.Kind, "price", price, "order_id", o.OrderID)
			if _, open := p.positions[symbol]; !open {
				for id, rest := range p.orders {
					if rest.Leg.Symbol == symbol {
						delete(p.orders, id)
					}
				}
			}
		}
	}
}

func (p *Paper) sortedResting(symbol string) []*resting {
	var out []*resting
	for _, o := range p.orders {
		if o.Leg.Symbol == symbol {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// touched reports whether c crosses the leg's trigger and the fill price.
// A sell leg closes a long: its stop sits below and its target above.
func (o *resting) touched(c model.Candle) (float64, bool) {
	leg := o.Leg
	sell := leg.Side == model.SideSell
	fill := func(stop float64) float64 {
		if leg.LimitPrice > 0 {
			return leg.LimitPrice
		}
		return stop
	}

	switch leg.Type {
	case model.OrderStopMarket, model.OrderStopLossLimit:
		if (sell && c.Low <= leg.StopPrice) || (!sell && c.High >= leg.StopPrice) {
			return fill(leg.StopPrice), true
		}
	case model.OrderTakeProfitMarket, model.OrderTakeProfitLimit:
		if (sell && c.High >= leg.StopPrice) || (!sell && c.Low <= leg.StopPrice) {
			return fill(leg.StopPrice), true
		}
	case model.OrderTrailingStop:
		return o.trail(c, sell)
	}
	return 0, false
}

// trail tracks the best price once the activation price trades and fires
// when price retraces CallbackRate percent from the best of earlier candles.
// The activating candle never fires: its high and low are unordered.
func (o *resting) trail(c model.Candle, sell bool) (float64, bool) {
	leg := o.Leg
	best, worst := c.High, c.Low
	if !sell {
		best, worst = c.Low, c.High
	}
	if !o.active {
		if leg.ActivationPrice > 0 && ((sell && best < leg.ActivationPrice) || (!sell && best > leg.ActivationPrice)) {
			return 0, false
		}
		o.active, o.peak = true, best
		return 0, false
	}

	cb := leg.CallbackRate / 100
	if sell {
		if stop := o.peak * (1 - cb); worst <= stop {
			return stop, true
		}
	} else if stop := o.peak * (1 + cb); worst >= stop {
		return stop, true
	}
	if (sell && best > o.peak) || (!sell && best < o.peak) {
		o.peak = best
	}
	return 0, false
}
