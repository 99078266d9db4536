// Package metrics exposes the Prometheus instruments of the identity service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instance id registration outcomes.
const (
	StatusRegistered = "registered"
	StatusDuplicate  = "duplicate"
	StatusFailed     = "failed"
)

var (
	instanceIDsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_instance_ids_total",
			Help: "Total number of computed connector instance ids labeled by registration status",
		},
		[]string{"status"},
	)
	duplicateInstancesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_duplicate_instances_total",
			Help: "Total number of duplicate connector instances detected within a tracking window",
		},
	)
	windowClearsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_tracking_window_clears_total",
			Help: "Total number of tracking windows cleared",
		},
	)
	windowSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connector_tracking_window_size",
			Help: "Number of instance ids in the current tracking window",
		},
	)
	canonicalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canonical_errors_total",
			Help: "Total number of canonical serialization failures split by type",
		},
		[]string{"type"},
	)
	canonicalBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canonical_bytes",
			Help:    "Size of canonical configuration text in bytes",
			Buckets: prometheus.ExponentialBuckets(32, 4, 8),
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
)

// RecordInstanceID counts a computed instance id by registration status.
func RecordInstanceID(status string) {
	if status == "" {
		status = "unknown"
	}

	instanceIDsTotal.WithLabelValues(status).Inc()
	if status == StatusDuplicate {
		duplicateInstancesTotal.Inc()
	}
}

// RecordWindowClear counts a cleared tracking window.
func RecordWindowClear() {
	windowClearsTotal.Inc()
	windowSize.Set(0)
}

// SetWindowSize updates the gauge for the current tracking window.
func SetWindowSize(n int) {
	windowSize.Set(float64(n))
}

// RecordCanonicalError counts a serialization failure.
func RecordCanonicalError(errType string) {
	if errType == "" {
		errType = "unknown"
	}

	canonicalErrorsTotal.WithLabelValues(errType).Inc()
}

// ObserveCanonicalBytes records the size of a canonical text.
func ObserveCanonicalBytes(n int) {
	canonicalBytes.Observe(float64(n))
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
