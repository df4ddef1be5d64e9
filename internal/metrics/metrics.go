// Package metrics defines the service's Prometheus instruments.
// Everything is registered with promauto on the default registry and
// exposed by the /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudwear_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cloudwear_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	samplesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudwear_telemetry_samples_ingested_total",
		Help: "Count of telemetry samples appended, by sample kind",
	}, []string{"kind"})

	telemetryPartitionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudwear_telemetry_partitions_created_total",
		Help: "Count of per-(user,day) telemetry partitions created lazily",
	})

	eventNamespacesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudwear_event_namespaces_created_total",
		Help: "Count of per-profile event namespaces provisioned",
	})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudwear_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSamplesIngested records appended telemetry samples of one kind
// ("cardiaco", "acelerometro", "ubicacion").
func ObserveSamplesIngested(kind string, n int) {
	if n > 0 {
		samplesIngested.WithLabelValues(kind).Add(float64(n))
	}
}

// ObservePartitionCreated records the lazy creation of a telemetry
// partition.
func ObservePartitionCreated() {
	telemetryPartitionsCreated.Inc()
}

// ObserveNamespaceCreated records the provisioning of an event namespace.
func ObserveNamespaceCreated() {
	eventNamespacesCreated.Inc()
}

// ObserveLogin records a login attempt; result is "success" or "failure".
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
