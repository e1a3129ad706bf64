package jdb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the driver's collectors. A nil *Metrics records nothing.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	EventsTotal     *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
}

// NewMetrics builds unregistered collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Debugger commands resolved, labeled by category and outcome.",
		}, []string{"category", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from writing a command to its response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Unsolicited debugger notifications, labeled by kind.",
		}, []string{"kind"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Debugging sessions started and not yet torn down.",
		}),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.CommandsTotal, m.CommandDuration, m.EventsTotal, m.SessionsActive}
}

func (m *Metrics) command(c *Command, outcome string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(c.Category.String(), outcome).Inc()
	if !c.sentAt.IsZero() {
		m.CommandDuration.WithLabelValues(c.Category.String()).Observe(time.Since(c.sentAt).Seconds())
	}
}

func (m *Metrics) event(k EventKind) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}
