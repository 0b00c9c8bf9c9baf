package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "facility_"

// Metrics counts bulk job runs by kind and outcome.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  *prometheus.GaugeVec
}

// NewMetrics registers the job metrics on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "job_runs_total",
			Help: "Bulk job runs by kind and final status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "job_duration_seconds",
			Help:    "Wall time of bulk job runs that acquired the lock.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricPrefix + "jobs_running",
			Help: "Bulk jobs currently executing in this process.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.running)
	}
	return m
}

func (m *Metrics) started(kind Kind) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) finished(kind Kind, status Status, took time.Duration) {
	if m == nil {
		return
	}
	m.running.WithLabelValues(string(kind)).Dec()
	m.duration.WithLabelValues(string(kind)).Observe(took.Seconds())
	m.runs.WithLabelValues(string(kind), string(status)).Inc()
}

// notStarted counts a run that never acquired the lock.
func (m *Metrics) notStarted(kind Kind, status Status) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(kind), string(status)).Inc()
}
