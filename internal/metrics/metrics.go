// Package metrics exposes Prometheus collectors for session and report
// pipeline activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "profilebot"

// Metrics holds the bot's collectors. A nil *Metrics records nothing.
type Metrics struct {
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	answers          *prometheus.CounterVec
	llmFallbacks     *prometheus.CounterVec
	uploads          *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	sessionsActive   prometheus.Gauge
}

// MustNewMetrics creates the collectors and registers them with reg, or the
// default registerer when reg is nil. Registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Sessions created, including resets with /start.",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Sessions that reached a terminal stage.",
		}, []string{"outcome"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "answers_total",
			Help:      "Answers received, by instrument and validity.",
		}, []string{"instrument", "valid"}),
		llmFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "synth",
			Name:      "fallbacks_total",
			Help:      "Narrative blocks produced by the deterministic template.",
		}, []string{"section"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "uploads_total",
			Help:      "Report uploads by variant and status.",
		}, []string{"variant", "status"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from session completion to the final reply.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"status"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently held in memory.",
		}),
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.sessionsFinished,
		m.answers,
		m.llmFallbacks,
		m.uploads,
		m.pipelineDuration,
		m.sessionsActive,
	)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// SessionFinished counts a session that left the battery: "completed",
// "failed", "aborted" or "reset".
func (m *Metrics) SessionFinished(outcome string) {
	if m == nil {
		return
	}
	m.sessionsFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Answer(instrument string, valid bool) {
	if m == nil {
		return
	}
	v := "false"
	if valid {
		v = "true"
	}
	m.answers.WithLabelValues(instrument, v).Inc()
}

func (m *Metrics) LLMFallback(section string) {
	if m == nil {
		return
	}
	m.llmFallbacks.WithLabelValues(section).Inc()
}

func (m *Metrics) Upload(variant, status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(variant, status).Inc()
}

func (m *Metrics) ObservePipeline(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}
