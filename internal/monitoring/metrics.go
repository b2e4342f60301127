package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gate metrics
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_validations_total",
			Help: "Total number of trade validations by decision",
		},
		[]string{"decision"},
	)

	riskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_gate_risk_score",
			Help:    "Distribution of aggregate risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// Check metrics
	checkScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_check_score",
			Help: "Last score reported by each risk check",
		},
		[]string{"check"},
	)

	checksDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_checks_degraded_total",
			Help: "Total number of checks degraded to a neutral score",
		},
		[]string{"check"},
	)

	// Circuit breaker metrics
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_breaker_state",
			Help: "Circuit breaker tier state (0=normal, 1=breached, 2=cooldown)",
		},
		[]string{"tier"},
	)

	breakerTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_breaker_trips_total",
			Help: "Total number of circuit breaker trips by tier",
		},
		[]string{"tier"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(validationsTotal)
	prometheus.MustRegister(riskScore)
	prometheus.MustRegister(checkScore)
	prometheus.MustRegister(checksDegradedTotal)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(breakerTripsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordValidation records one completed validation
func RecordValidation(decision string, score float64) {
	validationsTotal.WithLabelValues(decision).Inc()
	riskScore.Observe(score)
}

// RecordCheckScore updates the last-score gauge for a check
func RecordCheckScore(check string, score float64) {
	checkScore.WithLabelValues(check).Set(score)
}

// RecordCheckDegraded records a check that fell back to a neutral score
func RecordCheckDegraded(check string) {
	checksDegradedTotal.WithLabelValues(check).Inc()
}

// UpdateBreakerState updates the state gauge for a breaker tier
func UpdateBreakerState(tier string, state int) {
	breakerState.WithLabelValues(tier).Set(float64(state))
}

// RecordBreakerTrip records a breaker tier trip
func RecordBreakerTrip(tier string) {
	breakerTripsTotal.WithLabelValues(tier).Inc()
}
