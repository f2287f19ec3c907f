package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lossyudp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total dashboard HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lossyudp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	lifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lossyudp",
			Subsystem: "events",
			Name:      "recognized_total",
			Help:      "Recognized lifecycle events received on the log channel.",
		},
		[]string{"component", "event"},
	)
	ignoredLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lossyudp",
			Subsystem: "events",
			Name:      "ignored_lines_total",
			Help:      "Log channel lines that were malformed or unrecognized.",
		},
	)
	logConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lossyudp",
			Subsystem: "events",
			Name:      "connections",
			Help:      "Currently connected log producers.",
		},
	)
	relayPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lossyudp",
			Subsystem: "relay",
			Name:      "packets_total",
			Help:      "Relay datagrams by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)
	relayDelay = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lossyudp",
			Subsystem: "relay",
			Name:      "injected_delay_seconds",
			Help:      "Artificial delay applied to relayed datagrams.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			lifecycleEvents,
			ignoredLines,
			logConnections,
			relayPackets,
			relayDelay,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordLifecycleEvent(component, event string) {
	RegisterMetrics()
	lifecycleEvents.WithLabelValues(component, event).Inc()
}

func RecordIgnoredLine() {
	RegisterMetrics()
	ignoredLines.Inc()
}

func LogConnectionOpened() {
	RegisterMetrics()
	logConnections.Inc()
}

func LogConnectionClosed() {
	RegisterMetrics()
	logConnections.Dec()
}

func RecordRelayPacket(direction, outcome string) {
	RegisterMetrics()
	relayPackets.WithLabelValues(direction, outcome).Inc()
}

func RecordRelayDelay(direction string, d time.Duration) {
	RegisterMetrics()
	relayDelay.WithLabelValues(direction).Observe(d.Seconds())
}
