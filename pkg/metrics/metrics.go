package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records metadata for scheduled jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewJobMetrics registers the scheduled job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of scheduled jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful scheduled job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed scheduled job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (m *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// LedgerMetrics counts the ledger's lifecycle events per item kind.
type LedgerMetrics struct {
	rolls         *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	acknowledged  *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	rolls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rolls_total",
		Help: "Crafting roll requests accepted.",
	}, []string{"kind"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_deliveries_total",
		Help: "Matured transactions delivered.",
	}, []string{"kind"})
	cancellations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_cancellations_total",
		Help: "Pending transactions cancelled.",
	}, []string{"kind"})
	acknowledged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_acknowledged_total",
		Help: "Delivered transactions acknowledged by the sweep.",
	}, []string{"kind"})
	reg.MustRegister(rolls, deliveries, cancellations, acknowledged)
	return &LedgerMetrics{
		rolls:         rolls,
		deliveries:    deliveries,
		cancellations: cancellations,
		acknowledged:  acknowledged,
	}
}

func (m *LedgerMetrics) IncRolls(kind string) {
	if m == nil || m.rolls == nil {
		return
	}
	m.rolls.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LedgerMetrics) IncDeliveries(kind string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LedgerMetrics) IncCancellations(kind string) {
	if m == nil || m.cancellations == nil {
		return
	}
	m.cancellations.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LedgerMetrics) IncAcknowledged(kind string) {
	if m == nil || m.acknowledged == nil {
		return
	}
	m.acknowledged.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
