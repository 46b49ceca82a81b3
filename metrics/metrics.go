// Package metrics holds the prometheus collectors for bracket progression and the stalled-tournament sweep.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "room_bracket"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	sweepsTotal          prometheus.Counter
	sweepDuration        prometheus.Histogram
	tournamentsCancelled prometheus.Counter
	refundsIssued        prometheus.Counter
	refundFailures       prometheus.Counter
	refundsSkipped       prometheus.Counter
	winnersDeclared      *prometheus.CounterVec
	declarationConflicts prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "sweeps_total",
			Help: "Number of stalled-tournament sweeps run.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "sweep_duration_seconds",
			Help:    "Duration of stalled-tournament sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		tournamentsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "tournaments_cancelled_total",
			Help: "Stalled tournaments cancelled by the sweep.",
		}),
		refundsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "refunds_issued_total",
			Help: "Refund transactions written by the sweep.",
		}),
		refundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "refund_failures_total",
			Help: "Refunds that failed and will be retried on the next sweep.",
		}),
		refundsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "refunds_skipped_total",
			Help: "Refunds skipped because one was already issued.",
		}),
		winnersDeclared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rounds", Name: "winners_declared_total",
			Help: "Room winners declared, by round kind.",
		}, []string{"kind"}),
		declarationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rounds", Name: "declaration_conflicts_total",
			Help: "Winner declarations rejected because the room was already completed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sweepsTotal,
		m.sweepDuration,
		m.tournamentsCancelled,
		m.refundsIssued,
		m.refundFailures,
		m.refundsSkipped,
		m.winnersDeclared,
		m.declarationConflicts,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) TournamentCancelled() {
	if m == nil {
		return
	}
	m.tournamentsCancelled.Inc()
}

func (m *Metrics) RefundIssued() {
	if m == nil {
		return
	}
	m.refundsIssued.Inc()
}

func (m *Metrics) RefundFailed() {
	if m == nil {
		return
	}
	m.refundFailures.Inc()
}

func (m *Metrics) RefundSkipped() {
	if m == nil {
		return
	}
	m.refundsSkipped.Inc()
}

// WinnerDeclared counts a room result; finale distinguishes the deciding room.
func (m *Metrics) WinnerDeclared(finale bool) {
	if m == nil {
		return
	}
	kind := "round"
	if finale {
		kind = "finale"
	}
	m.winnersDeclared.WithLabelValues(kind).Inc()
}

func (m *Metrics) DeclarationConflict() {
	if m == nil {
		return
	}
	m.declarationConflicts.Inc()
}
