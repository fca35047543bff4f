package portfolio

import (
	"fmt"
	"log/slog"
	"sync"
)

// RiskLimits defines thresholds checked before a new bracket is opened.
// A zero value disables the corresponding check.
type RiskLimits struct {
	MaxOpenPositions int     `yaml:"max_open_positions" json:"max_open_positions"`
	MaxExposurePct   float64 `yaml:"max_exposure_pct" json:"max_exposure_pct"`
	MaxDrawdownPct   float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
}

// RiskManager tracks peak equity across snapshots and validates new entries.
type RiskManager struct {
	mu         sync.RWMutex
	limits     RiskLimits
	last       Summary
	peakEquity float64
}

// NewRiskManager creates a RiskManager with the given limits.
func NewRiskManager(limits RiskLimits) *RiskManager {
	return &RiskManager{limits: limits}
}

// Observe records the latest account summary.
func (rm *RiskManager) Observe(s Summary) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.last = s
	if s.Equity > rm.peakEquity {
		rm.peakEquity = s.Equity
	}
}

// Drawdown returns the percentage drop of equity from its observed peak.
func (rm *RiskManager) Drawdown() float64 {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.drawdown()
}

func (rm *RiskManager) drawdown() float64 {
	if rm.peakEquity <= 0 {
		return 0
	}
	return (rm.peakEquity - rm.last.Equity) / rm.peakEquity * 100
}

// CanOpen checks whether a new position in symbol would violate a limit.
// Returns true if allowed, false with a reason if not.
func (rm *RiskManager) CanOpen(symbol string) (bool, string) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, p := range rm.last.Positions {
		if p.Symbol == symbol {
			return false, "position already open"
		}
	}
	if n := rm.limits.MaxOpenPositions; n > 0 && rm.last.OpenPositions >= n {
		return false, fmt.Sprintf("max open positions reached (%d)", n)
	}
	if pct := rm.limits.MaxExposurePct; pct > 0 && rm.last.ExposurePct() >= pct {
		return false, fmt.Sprintf("exposure %.1f%% at limit", rm.last.ExposurePct())
	}
	if pct := rm.limits.MaxDrawdownPct; pct > 0 {
		if dd := rm.drawdown(); dd > pct {
			slog.Warn("risk: drawdown limit breached", "drawdown_pct", dd, "limit_pct", pct)
			return false, "max drawdown exceeded"
		}
	}
	return true, ""
}

// Status returns the current risk state for the status API.
func (rm *RiskManager) Status() map[string]interface{} {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return map[string]interface{}{
		"equity":         rm.last.Equity,
		"peak_equity":    rm.peakEquity,
		"drawdown_pct":   rm.drawdown(),
		"exposure_pct":   rm.last.ExposurePct(),
		"open_positions": rm.last.OpenPositions,
		"limits":         rm.limits,
	}
}
