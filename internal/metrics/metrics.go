package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsActive   prometheus.Gauge
	Submissions      *prometheus.CounterVec
	SubmitDuration   prometheus.Histogram
	Violations       *prometheus.CounterVec
	ViolationsStored prometheus.Counter
	Evictions        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer served by promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam",
			Name:      "sessions_started_total",
			Help:      "Test sessions started, by whether they resumed from a draft.",
		}, []string{"resumed"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exam",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam",
			Name:      "submissions_total",
			Help:      "Submission attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "exam",
			Name:      "submit_duration_seconds",
			Help:      "Latency of persisting a submission.",
			Buckets:   prometheus.DefBuckets,
		}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam",
			Name:      "proctor_violations_total",
			Help:      "Proctoring violations observed, by type.",
		}, []string{"type"}),
		ViolationsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exam",
			Name:      "proctor_violations_stored_total",
			Help:      "Violations written to Postgres by the queue worker.",
		}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exam",
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by the sweeper, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsActive,
		m.Submissions,
		m.SubmitDuration,
		m.Violations,
		m.ViolationsStored,
		m.Evictions,
	)
	return m
}

// ObserveSubmit records one persistence attempt.
func (m *Metrics) ObserveSubmit(trigger string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Submissions.WithLabelValues(trigger, result).Inc()
	m.SubmitDuration.Observe(time.Since(started).Seconds())
}

// SessionStarted records a new session.
func (m *Metrics) SessionStarted(resumed bool) {
	if m == nil {
		return
	}
	label := "false"
	if resumed {
		label = "true"
	}
	m.SessionsStarted.WithLabelValues(label).Inc()
	m.SessionsActive.Inc()
}

// SessionEnded records a session leaving memory.
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	if reason != "" {
		m.Evictions.WithLabelValues(reason).Inc()
	}
}

// Violation counts one proctoring violation.
func (m *Metrics) Violation(kind string) {
	if m == nil {
		return
	}
	m.Violations.WithLabelValues(kind).Inc()
}

// Stored counts violations persisted in bulk.
func (m *Metrics) Stored(n int) {
	if m == nil {
		return
	}
	m.ViolationsStored.Add(float64(n))
}
