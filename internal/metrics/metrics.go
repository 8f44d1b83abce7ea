// Package metrics holds the Prometheus collectors for game activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robalobadob/astromatch/internal/match"
)

// Metrics groups the collectors registered by New.
type Metrics struct {
	RoundsStarted   prometheus.Counter
	RoundsCompleted prometheus.Counter
	RoundsAbandoned prometheus.Counter
	Flips           *prometheus.CounterVec
	FetchErrors     *prometheus.CounterVec
	RoundDuration   prometheus.Histogram
	ActiveSessions  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astromatch",
			Name:      "rounds_started_total",
			Help:      "Rounds dealt.",
		}),
		RoundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astromatch",
			Name:      "rounds_completed_total",
			Help:      "Rounds finished with every pair matched.",
		}),
		RoundsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astromatch",
			Name:      "rounds_abandoned_total",
			Help:      "Rounds discarded before completion.",
		}),
		Flips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astromatch",
			Name:      "flips_total",
			Help:      "Flip requests by outcome.",
		}, []string{"result"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astromatch",
			Name:      "image_fetch_errors_total",
			Help:      "Image source failures by kind.",
		}, []string{"kind"}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "astromatch",
			Name:      "round_duration_seconds",
			Help:      "Elapsed seconds of completed rounds.",
			Buckets:   []float64{15, 30, 60, 120, 240, 480, 960},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "astromatch",
			Name:      "active_sessions",
			Help:      "Live game sessions.",
		}),
	}
	reg.MustRegister(
		m.RoundsStarted, m.RoundsCompleted, m.RoundsAbandoned,
		m.Flips, m.FetchErrors, m.RoundDuration, m.ActiveSessions,
	)
	return m
}

// Flip records the outcome of one flip request.
func (m *Metrics) Flip(accepted bool) {
	if accepted {
		m.Flips.WithLabelValues("accepted").Inc()
		return
	}
	m.Flips.WithLabelValues("ignored").Inc()
}

// OnEvent implements match.Listener so a controller can report into m.
func (m *Metrics) OnEvent(e match.Event) {
	switch e.Kind {
	case match.EventRoundStarted:
		m.RoundsStarted.Inc()
	case match.EventRoundComplete:
		m.RoundsCompleted.Inc()
		if e.Result != nil {
			m.RoundDuration.Observe(float64(e.Result.ElapsedSeconds))
		}
	case match.EventRoundAbandoned:
		m.RoundsAbandoned.Inc()
	}
}
