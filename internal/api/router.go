// Package api exposes the agent's status over HTTP: Prometheus metrics,
// health, the live WebSocket feed and the decision journal.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tabot/internal/execution"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// RiskStatus reports the risk manager state.
type RiskStatus interface {
	Status() map[string]interface{}
}

// API holds the handlers' dependencies. Nil fields disable their routes.
type API struct {
	Gatherer prometheus.Gatherer
	Health   http.Handler
	Hub      http.Handler
	Journal  *execution.Journal
	Risk     RiskStatus
}

// NewRouter builds the HTTP routes.
func NewRouter(a *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if a.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{}))
	}
	if a.Health != nil {
		r.Handle("/healthz", a.Health)
	}
	if a.Hub != nil {
		r.Handle("/ws", a.Hub)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, "ok")
		})
		r.Get("/decisions", a.HandleDecisions)
		r.Get("/decisions/{symbol}", a.HandleDecisions)
		r.Get("/risk", a.HandleRisk)
	})
	return r
}

// HandleDecisions returns recent journal rows, newest first, optionally
// for one symbol. ?limit= caps the rows returned.
func (a *API) HandleDecisions(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	var (
		recs []execution.DecisionRecord
		err  error
	)
	if sym := chi.URLParam(r, "symbol"); sym != "" {
		recs, err = a.Journal.RecentFor(sym, limit)
	} else {
		recs, err = a.Journal.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []execution.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleRisk returns the risk manager status.
func (a *API) HandleRisk(w http.ResponseWriter, r *http.Request) {
	if a.Risk == nil {
		writeError(w, http.StatusNotFound, "risk manager unavailable")
		return
	}
	writeJSON(w, http.StatusOK, a.Risk.Status())
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
