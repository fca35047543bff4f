package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus tracks dependency health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	ExchangeOK     bool      `json:"exchange_ok"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
	Halted         bool      `json:"halted"`
	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt:  time.Now(),
		ExchangeOK: true,
		SQLiteOK:   true,
	}
}

func (h *HealthStatus) SetExchangeOK(v bool) {
	h.mu.Lock()
	h.ExchangeOK = v
	h.mu.Unlock()
}

// MarkCycle records a finished decision pass.
func (h *HealthStatus) MarkCycle(t time.Time) {
	h.mu.Lock()
	h.LastCycleAt = t
	h.ExchangeOK = true
	h.mu.Unlock()
}

// SetHalted marks the loop as stopped after an unrecoverable bracket.
func (h *HealthStatus) SetHalted(v bool) {
	h.mu.Lock()
	h.Halted = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. A nil client or db
// skips that probe.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckSQLite(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	switch {
	case h.Halted:
		overall, code = "halted", http.StatusServiceUnavailable
	case !h.ExchangeOK || !h.SQLiteOK || (h.RedisEnabled && !h.RedisConnected):
		overall, code = "degraded", http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = h.LastCycleAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		ExchangeOK      bool    `json:"exchange_ok"`
		LastCycleAt     string  `json:"last_cycle_at"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		ExchangeOK:      h.ExchangeOK,
		LastCycleAt:     lastCycle,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}
