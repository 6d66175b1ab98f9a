package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the resolution engine.
// Construct once at wiring time; promauto registers globally.
type Metrics struct {
	Resolutions     *prometheus.CounterVec
	TierAttempts    *prometheus.CounterVec
	ProofFailures   prometheus.Counter
	ResolveDuration prometheus.Histogram
}

// New creates and registers all resolution metrics.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgrid_resolutions_total",
			Help: "Total resolutions by outcome (resolved, tier_exhausted, timeout, ...)",
		}, []string{"outcome"}),
		TierAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgrid_tier_attempts_total",
			Help: "Total tier attempts by tier and result",
		}, []string{"tier", "result"}),
		ProofFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgrid_proof_failures_total",
			Help: "Total candidate drops due to token or proof verification failures",
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustgrid_resolve_duration_seconds",
			Help:    "Latency of tiered resolution calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveOutcome increments the resolution counter for an outcome label.
func (m *Metrics) ObserveOutcome(outcome string) {
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// ObserveTierAttempt increments the tier attempt counter.
func (m *Metrics) ObserveTierAttempt(tier, result string) {
	m.TierAttempts.WithLabelValues(tier, result).Inc()
}
