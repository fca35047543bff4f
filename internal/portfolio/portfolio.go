// Package portfolio summarizes the exchange account between decision cycles.
//
// The exchange is the source of truth for balances and positions; this
// package only derives totals from an account snapshot and gates new
// entries against configured risk limits.
package portfolio

import (
	"sort"
	"time"

	"tabot/internal/model"
)

// Summary is a point-in-time view of the account.
type Summary struct {
	Asset            string           `json:"asset"`
	WalletBalance    float64          `json:"wallet_balance"`
	AvailableBalance float64          `json:"available_balance"`
	UnrealizedPnL    float64          `json:"unrealized_pnl"`
	Equity           float64          `json:"equity"`
	Exposure         float64          `json:"exposure"`
	OpenPositions    int              `json:"open_positions"`
	Positions        []model.Position `json:"positions"`
	At               time.Time        `json:"at"`
}

// Summarize derives a Summary from an account snapshot. Positions are
// sorted by symbol so reports render deterministically.
func Summarize(acct model.Account, at time.Time) Summary {
	s := Summary{
		Asset:            acct.Asset,
		WalletBalance:    acct.WalletBalance,
		AvailableBalance: acct.AvailableBalance,
		Positions:        make([]model.Position, 0, len(acct.Positions)),
		At:               at,
	}
	for _, p := range acct.Positions {
		if p.Quantity == 0 {
			continue
		}
		s.Positions = append(s.Positions, p)
		s.UnrealizedPnL += p.UnrealizedPnL()
		s.Exposure += p.Notional()
	}
	sort.Slice(s.Positions, func(i, j int) bool {
		return s.Positions[i].Symbol < s.Positions[j].Symbol
	})
	s.OpenPositions = len(s.Positions)
	s.Equity = s.WalletBalance
	if !acct.Spot {
		s.Equity += s.UnrealizedPnL
	}
	return s
}

// ExposurePct returns exposure as a percentage of equity.
func (s Summary) ExposurePct() float64 {
	if s.Equity <= 0 {
		return 0
	}
	return s.Exposure / s.Equity * 100
}
