package verification

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRequestsTotal  = "verification_requests_total"
	MetricDecisionsTotal = "verification_decisions_total"
	MetricDecisionErrors = "verification_decision_errors_total"
	MetricPendingQueue   = "verification_pending_queue_size"
)

// Metrics contains Prometheus metrics for the verification ledger.
// All operations are thread-safe.
type Metrics struct {
	RequestsTotal  prometheus.Counter
	DecisionsTotal *prometheus.CounterVec
	DecisionErrors prometheus.Counter
	PendingQueue   *prometheus.GaugeVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "Total number of verification requests applied to the ledger",
		}),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDecisionsTotal,
				Help: "Total number of verifier decisions by outcome",
			},
			[]string{"outcome"},
		),
		DecisionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDecisionErrors,
			Help: "Total number of decisions refused for authorization or state violations",
		}),
		PendingQueue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPendingQueue,
				Help: "Number of records currently pending per organization",
			},
			[]string{"org"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.RequestsTotal,
		m.DecisionsTotal,
		m.DecisionErrors,
		m.PendingQueue,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
