package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for compliance runs.
type Metrics struct {
	// Customer verdicts by status and primary reason
	CustomerVerdicts *prometheus.CounterVec

	// Customers evaluated, across all runs
	CustomersEvaluated prometheus.Counter

	// Sink flush latency and batch size
	FlushLatency   prometheus.Histogram
	FlushBatchSize prometheus.Histogram

	// Full run latency by outcome
	RunLatency *prometheus.HistogramVec

	// Runs currently in flight
	RunsInFlight prometheus.Gauge
}

// New creates a new Metrics instance with all compliance metrics registered.
func New() *Metrics {
	return &Metrics{
		CustomerVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfaudit_customer_verdicts_total",
			Help: "Customer verdicts by status and primary reason",
		}, []string{"status", "reason"}),

		CustomersEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shelfaudit_customers_evaluated_total",
			Help: "Total customers evaluated across all runs",
		}),

		FlushLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfaudit_sink_flush_duration_seconds",
			Help:    "Duration of result batch writes to the sink",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		FlushBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfaudit_sink_flush_customers",
			Help:    "Customers per result batch written to the sink",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),

		RunLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shelfaudit_run_duration_seconds",
			Help:    "Duration of full period evaluations by outcome",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}), // outcome: "completed", "failed", "canceled"

		RunsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "shelfaudit_runs_in_flight",
			Help: "Period evaluations currently running",
		}),
	}
}

// IncrementVerdict records one customer verdict.
func (m *Metrics) IncrementVerdict(status, reason string) {
	if m != nil {
		m.CustomerVerdicts.WithLabelValues(status, reason).Inc()
		m.CustomersEvaluated.Inc()
	}
}

// ObserveFlush records a sink write.
func (m *Metrics) ObserveFlush(customers int, d time.Duration) {
	if m != nil {
		m.FlushLatency.Observe(d.Seconds())
		m.FlushBatchSize.Observe(float64(customers))
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m != nil {
		m.RunLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// RunStarted increments the in-flight gauge.
func (m *Metrics) RunStarted() {
	if m != nil {
		m.RunsInFlight.Inc()
	}
}

// RunFinished decrements the in-flight gauge.
func (m *Metrics) RunFinished() {
	if m != nil {
		m.RunsInFlight.Dec()
	}
}
