package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabot/internal/execution"
	"tabot/internal/metrics"
	"tabot/internal/portfolio"
)

func newAPI(t *testing.T) *API {
	t.Helper()
	j, err := execution.NewJournal(execution.MemoryJournal)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT"} {
		if err := j.Record(execution.DecisionRecord{
			Strategy: "ta", Symbol: sym, Timeframe: "1h", Vote: 1, Direction: "BULLISH",
			Status: "PLACED", DecidedAt: at,
		}); err != nil {
			t.Fatal(err)
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.CyclesTotal.Inc()

	return &API{
		Gatherer: reg,
		Health:   metrics.NewHealthStatus(),
		Journal:  j,
		Risk:     portfolio.NewRiskManager(portfolio.RiskLimits{MaxOpenPositions: 3}),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRouter_Decisions(t *testing.T) {
	h := NewRouter(newAPI(t))

	tests := []struct {
		path string
		code int
		rows int
	}{
		{"/api/v1/decisions", http.StatusOK, 3},
		{"/api/v1/decisions?limit=1", http.StatusOK, 1},
		{"/api/v1/decisions/BTCUSDT", http.StatusOK, 2},
		{"/api/v1/decisions/XRPUSDT", http.StatusOK, 0},
		{"/api/v1/decisions/ETHUSDT?limit=1", http.StatusOK, 1},
		{"/api/v1/decisions?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, env := get(t, h, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			if tt.code != http.StatusOK {
				if env.Success || env.Error == "" {
					t.Errorf("expected error envelope, got %s", rec.Body.String())
				}
				return
			}
			var rows []execution.DecisionRecord
			if err := json.Unmarshal(env.Data, &rows); err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.rows {
				t.Errorf("rows = %d, want %d", len(rows), tt.rows)
			}
		})
	}
}

func TestRouter_MetricsHealthRisk(t *testing.T) {
	h := NewRouter(newAPI(t))

	rec, _ := get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tabot_cycles_total 1") {
		t.Errorf("metrics missing cycle counter:\n%s", rec.Body.String())
	}

	rec, _ = get(t, h, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("unexpected health: %d %s", rec.Code, rec.Body.String())
	}

	rec, env := get(t, h, "/api/v1/risk")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"max_open_positions":3`) {
		t.Errorf("unexpected risk: %s", rec.Body.String())
	}
}

func TestRouter_DisabledRoutes(t *testing.T) {
	h := NewRouter(&API{})
	if rec, _ := get(t, h, "/api/v1/decisions"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without journal, got %d", rec.Code)
	}
	if rec, _ := get(t, h, "/ws"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without hub, got %d", rec.Code)
	}
}
