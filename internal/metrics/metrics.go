package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabot/internal/exchange"
	"tabot/internal/execution"
	"tabot/internal/model"
	"tabot/internal/report"
	"tabot/internal/strategy"
)

// Metrics holds all Prometheus metrics of the trading agent.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram

	// Signal pipeline
	IndicatorComputeDur prometheus.Histogram
	ReadingsTotal       *prometheus.CounterVec // labels: rule, direction
	Votes               prometheus.Histogram
	LastVote            *prometheus.GaugeVec   // labels: symbol
	DecisionsTotal      *prometheus.CounterVec // labels: outcome

	// Execution
	OrdersTotal        *prometheus.CounterVec // labels: leg, result
	BracketsTotal      *prometheus.CounterVec // labels: status
	GatewayErrorsTotal *prometheus.CounterVec // labels: code

	// Presentation
	WSClients                prometheus.Gauge
	RedisPublishesTotal      *prometheus.CounterVec // labels: result
	RedisCircuitBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tabot_cycles_total",
			Help: "Decision cycles completed",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabot_cycle_duration_seconds",
			Help:    "Time spent deciding every symbol once",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabot_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency per symbol series",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ReadingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_readings_total",
			Help: "Signal readings by rule and direction",
		}, []string{"rule", "direction"}),
		Votes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabot_vote",
			Help:    "Distribution of symbol votes",
			Buckets: prometheus.LinearBuckets(-1, 0.25, 9),
		}),
		LastVote: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tabot_last_vote",
			Help: "Most recent vote per symbol",
		}, []string{"symbol"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_decisions_total",
			Help: "Symbol decisions by outcome",
		}, []string{"outcome"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_orders_total",
			Help: "Order legs sent to the exchange",
		}, []string{"leg", "result"}),
		BracketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_brackets_total",
			Help: "Bracket outcomes",
		}, []string{"status"}),
		GatewayErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_gateway_errors_total",
			Help: "Exchange errors by code",
		}, []string{"code"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabot_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		RedisPublishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tabot_redis_publishes_total",
			Help: "Redis pub/sub publish attempts",
		}, []string{"result"}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tabot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.IndicatorComputeDur,
		m.ReadingsTotal,
		m.Votes,
		m.LastVote,
		m.DecisionsTotal,
		m.OrdersTotal,
		m.BracketsTotal,
		m.GatewayErrorsTotal,
		m.WSClients,
		m.RedisPublishesTotal,
		m.RedisCircuitBreakerState,
	)
	return m
}

// StrategyHooks binds the loop's observation points.
func (m *Metrics) StrategyHooks() strategy.Hooks {
	return strategy.Hooks{
		OnCycle: func(d time.Duration) {
			m.CyclesTotal.Inc()
			m.CycleDuration.Observe(d.Seconds())
		},
		OnReading: func(rule string, dir model.Direction) {
			m.ReadingsTotal.WithLabelValues(rule, dir.String()).Inc()
		},
		OnVote: func(symbol string, v float64) {
			m.Votes.Observe(v)
			m.LastVote.WithLabelValues(symbol).Set(v)
		},
		OnDecision: func(o strategy.Outcome) {
			m.DecisionsTotal.WithLabelValues(string(o)).Inc()
		},
	}
}

// ExecutionHooks binds the bracket executor's observation points.
func (m *Metrics) ExecutionHooks() execution.Hooks {
	return execution.Hooks{
		OnLeg: func(kind model.LegKind, err error) {
			result := "ok"
			if err != nil {
				result = "error"
				m.ObserveGatewayError(err)
			}
			m.OrdersTotal.WithLabelValues(string(kind), result).Inc()
		},
		OnBracket: func(s execution.Status) {
			m.BracketsTotal.WithLabelValues(string(s)).Inc()
		},
	}
}

// ObserveCompute records one indicator build.
func (m *Metrics) ObserveCompute(d time.Duration) {
	m.IndicatorComputeDur.Observe(d.Seconds())
}

// ObserveGatewayError counts err by exchange code; other errors count as "transport".
func (m *Metrics) ObserveGatewayError(err error) {
	code := "transport"
	if e, ok := exchange.AsError(err); ok {
		code = strconv.Itoa(e.Code)
	}
	m.GatewayErrorsTotal.WithLabelValues(code).Inc()
}

// ObservePublish records a Redis publish attempt.
func (m *Metrics) ObservePublish(err error) {
	if err != nil {
		m.RedisPublishesTotal.WithLabelValues("error").Inc()
		return
	}
	m.RedisPublishesTotal.WithLabelValues("ok").Inc()
}

// ObserveBreaker mirrors a breaker transition into the state gauge.
func (m *Metrics) ObserveBreaker(from, to report.State) {
	m.RedisCircuitBreakerState.Set(float64(to))
}
