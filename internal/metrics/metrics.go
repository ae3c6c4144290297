// Package metrics exposes Prometheus instruments for the command engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "canvas"

type Metrics struct {
	CommandsTotal      *prometheus.CounterVec
	DuplicatesTotal    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	Items              prometheus.Gauge
}

// New registers the instruments with reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by name and outcome",
		}, []string{"command", "outcome"}),
		DuplicatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_creations_total",
			Help:      "Creation requests answered with an existing id",
		}, []string{"scope", "reason"}),
		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "External generation latency by kind and status",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind", "status"}),
		Items: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "Items in the live document",
		}),
	}
}

func (m *Metrics) Command(name, outcome string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) Duplicate(scope, reason string) {
	if m == nil {
		return
	}
	m.DuplicatesTotal.WithLabelValues(scope, reason).Inc()
}

func (m *Metrics) Generation(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GenerationDuration.WithLabelValues(kind, status).Observe(elapsed.Seconds())
}

func (m *Metrics) SetItems(n int) {
	if m == nil {
		return
	}
	m.Items.Set(float64(n))
}
