package execution

import (
	"errors"
	"fmt"
	"math"

	"tabot/internal/indicator"
	"tabot/internal/model"
)

// RiskConfig sets how far the protective legs sit from the entry.
type RiskConfig struct {
	// ATRPeriod > 0 sizes the risk range from the latest ATR; otherwise
	// Percent of the reference price is used.
	ATRPeriod int
	Percent   float64

	// RewardRatio multiplies the risk range for the take-profit distance.
	RewardRatio float64

	// ATRFloorPct floors the ATR range at this percent of the reference
	// price. Futures use 1; spot uses none.
	ATRFloorPct float64
}

// Levels are the absolute prices of a bracket.
type Levels struct {
	RiskRange  float64 `json:"risk_range"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

var errNoATR = errors.New("execution: no ATR value for risk range")

// RiskRange returns the distance between entry and stop-loss.
func RiskRange(cfg RiskConfig, ref float64, s *indicator.Series) (float64, error) {
	if cfg.ATRPeriod <= 0 {
		return ref * cfg.Percent / 100, nil
	}
	if s == nil || s.Len() == 0 {
		return 0, errNoATR
	}
	atr := indicator.ATRValues(s.Candles(), cfg.ATRPeriod)
	rr := atr[len(atr)-1]
	if math.IsNaN(rr) {
		return 0, errNoATR
	}
	if floor := ref * cfg.ATRFloorPct / 100; rr < floor {
		rr = floor
	}
	return rr, nil
}

// ComputeLevels places the stop-loss one risk range against the trade and
// the take-profit RewardRatio ranges with it.
func ComputeLevels(cfg RiskConfig, dir model.Direction, ref, rr float64) (Levels, error) {
	if dir == model.Neutral {
		return Levels{}, errors.New("execution: neutral direction has no levels")
	}
	if ref <= 0 || rr <= 0 {
		return Levels{}, fmt.Errorf("execution: invalid reference %g or risk range %g", ref, rr)
	}
	d := dir.Sign()
	return Levels{
		RiskRange:  rr,
		StopLoss:   ref - rr*d,
		TakeProfit: ref + rr*cfg.RewardRatio*d,
	}, nil
}

// Default callback rate bounds, in percent, of a trailing stop.
const (
	DefaultCallbackMin = 0.1
	DefaultCallbackMax = 5.0
)

// TrailingParams derives the callback rate from the take-profit distance,
// clamped to [lo, hi] and rounded to 0.1, and an activation price two
// thirds of the way from the entry to the price one callback away.
func TrailingParams(dir model.Direction, ref, takeProfit, lo, hi float64) (callback, activation float64) {
	callback = math.Abs(takeProfit-ref) / ref * 100
	callback = math.Min(math.Max(callback, lo), hi)
	callback = math.Round(callback*10) / 10
	target := ref * (1 + callback*dir.Sign()/100)
	activation = (ref + 2*target) / 3
	return callback, activation
}
