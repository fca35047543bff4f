package execution

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tabot/internal/model"
)

// Quantity sizes an entry: balance × pct% × leverage / price, floored to the
// step size and clamped to the symbol's quantity limits.
func Quantity(balance, pct float64, leverage int, price float64, c model.SymbolConstraints) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("execution: invalid price %g", price)
	}
	if leverage < 1 {
		leverage = 1
	}
	qty := decimal.NewFromFloat(balance).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(leverage))).
		Div(decimal.NewFromFloat(price))

	qty = floorToStep(qty, c.StepSize)
	if c.MinQuantity > 0 && qty.LessThan(decimal.NewFromFloat(c.MinQuantity)) {
		qty = decimal.NewFromFloat(c.MinQuantity)
	}
	if c.MaxQuantity > 0 && qty.GreaterThan(decimal.NewFromFloat(c.MaxQuantity)) {
		qty = floorToStep(decimal.NewFromFloat(c.MaxQuantity), c.StepSize)
	}
	f, _ := qty.Float64()
	if f <= 0 {
		return 0, fmt.Errorf("execution: quantity rounds to zero (balance %g, price %g)", balance, price)
	}
	return f, nil
}

// RoundToTick rounds a price to the nearest tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	f, _ := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).Float64()
	return f
}

func floorToStep(v decimal.Decimal, step float64) decimal.Decimal {
	if step <= 0 {
		return v
	}
	s := decimal.NewFromFloat(step)
	return v.Div(s).Floor().Mul(s)
}
