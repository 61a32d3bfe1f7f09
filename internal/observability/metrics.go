package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Connection outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomePanic    = "panic"
	OutcomeRejected = "rejected"
)

var (
	registerOnce sync.Once

	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macroctl",
			Subsystem: "transport",
			Name:      "connections_total",
			Help:      "Accepted connections by final outcome.",
		},
		[]string{"outcome"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "macroctl",
			Subsystem: "transport",
			Name:      "active_connections",
			Help:      "Connections currently being served.",
		},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macroctl",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Protocol requests by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	generateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "macroctl",
			Subsystem: "session",
			Name:      "generate_duration_seconds",
			Help:      "Generate round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"side"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "macroctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Metrics endpoint requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "macroctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Metrics endpoint request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(connections, activeConnections, requests, generateDuration, httpRequests, httpDuration)
	})
}

func RecordConnection(outcome string) {
	RegisterMetrics()
	connections.WithLabelValues(outcome).Inc()
}

// TrackActive bumps the active-connection gauge and returns its release.
func TrackActive() func() {
	RegisterMetrics()
	activeConnections.Inc()
	return activeConnections.Dec
}

func RecordRequest(kind, outcome string) {
	RegisterMetrics()
	requests.WithLabelValues(kind, outcome).Inc()
}

// RecordGenerate observes one Generate call; side is "server" or "client".
func RecordGenerate(side string, duration time.Duration) {
	RegisterMetrics()
	generateDuration.WithLabelValues(side).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
