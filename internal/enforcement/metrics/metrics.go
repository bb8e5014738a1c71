package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enforcement engine. All methods are
// nil-safe so wiring can omit metrics in tests.
type Metrics struct {
	// Run outcomes: "ok", "fatal", "lease_held"
	Runs *prometheus.CounterVec

	// Per-record outcomes: "reminded", "expired", "noop", "failed"
	Records *prometheus.CounterVec

	// Notifications recorded in the ledger, by role and channel
	Notifications *prometheus.CounterVec

	// Full run latency
	RunDuration prometheus.Histogram
}

// New creates a Metrics instance with all enforcement metrics registered.
func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intakeguard_enforcement_runs_total",
			Help: "Total enforcement runs by outcome",
		}, []string{"outcome"}),

		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intakeguard_enforcement_records_total",
			Help: "Total records processed by outcome",
		}, []string{"outcome"}),

		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intakeguard_notifications_total",
			Help: "Total notifications recorded in the ledger by role and channel",
		}, []string{"role", "channel"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "intakeguard_enforcement_run_duration_seconds",
			Help:    "Duration of a full enforcement run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
}

// IncRun records a run outcome.
func (m *Metrics) IncRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// IncRecord records a per-record outcome.
func (m *Metrics) IncRecord(outcome string) {
	if m != nil {
		m.Records.WithLabelValues(outcome).Inc()
	}
}

// IncNotification records a ledger write.
func (m *Metrics) IncNotification(role, channel string) {
	if m != nil {
		m.Notifications.WithLabelValues(role, channel).Inc()
	}
}

// ObserveRunDuration records how long a run took.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}
