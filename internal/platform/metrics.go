package platform

import (
	"jdbrun/internal/jdb"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "jdbrun"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, labeled by method and route.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of request durations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// InitMetrics registers the HTTP collectors and a fresh set of driver
// collectors with reg, returning the driver metrics for the session.
func InitMetrics(reg prometheus.Registerer) *jdb.Metrics {
	m := jdb.NewMetrics(metricsNamespace)
	reg.MustRegister(HTTPRequestsTotal, HTTPDuration)
	reg.MustRegister(m.Collectors()...)
	return m
}
