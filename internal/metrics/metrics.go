package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region collectors

var (
	// turnsTotal counts handled turns.
	// Labels: intent, outcome
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edrisk",
		Subsystem: "engine",
		Name:      "turns_total",
		Help:      "Turns handled by intent and outcome",
	}, []string{"intent", "outcome"})

	turnLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edrisk",
		Subsystem: "engine",
		Name:      "turn_latency_seconds",
		Help:      "Time to produce a reply",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"intent"})

	// riskProbability tracks adjusted probabilities per task.
	riskProbability = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edrisk",
		Subsystem: "risk",
		Name:      "probability",
		Help:      "Adjusted risk probability by task",
		Buckets:   prometheus.LinearBuckets(0.05, 0.05, 19),
	}, []string{"task"})

	// retrievalTotal counts fusion calls.
	// Labels: backend, purpose (ask, recommend), result (hit, empty)
	retrievalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edrisk",
		Subsystem: "retrieval",
		Name:      "queries_total",
		Help:      "Knowledge base queries by backend, purpose and result",
	}, []string{"backend", "purpose", "result"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edrisk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"route", "code"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "edrisk",
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions held in memory",
	})
)

// #endregion collectors

// #region recorders

// RecordTurn records one handled turn.
func RecordTurn(intent, outcome string, d time.Duration) {
	turnsTotal.WithLabelValues(intent, outcome).Inc()
	turnLatencySeconds.WithLabelValues(intent).Observe(d.Seconds())
}

// RecordRisk records an adjusted probability.
func RecordRisk(task string, p float64) {
	riskProbability.WithLabelValues(task).Observe(p)
}

// RecordRetrieval records a knowledge base query and whether it returned
// anything.
func RecordRetrieval(backend, purpose string, hits int) {
	result := "hit"
	if hits == 0 {
		result = "empty"
	}
	retrievalTotal.WithLabelValues(backend, purpose, result).Inc()
}

// RecordHTTP records a served request.
func RecordHTTP(route string, code int) {
	httpRequestsTotal.WithLabelValues(route, codeLabel(code)).Inc()
}

// SetActiveSessions sets the in-memory session count.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

func codeLabel(code int) string {
	if code <= 0 {
		code = 200
	}
	return strconv.Itoa(code)
}

// #endregion recorders
