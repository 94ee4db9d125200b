// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_backend_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency. Everything is local hashing,
	// so the buckets stay well under a second.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedding_backend_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	// VectorsGenerated counts vectors produced, by model and input kind
	// (text, image, joint).
	VectorsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_backend_vectors_generated_total",
			Help: "Total number of embedding vectors generated",
		},
		[]string{"model", "kind"},
	)

	// RequestErrors counts rejected operations by model-independent error code.
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_backend_request_errors_total",
			Help: "Total number of rejected embedding requests",
		},
		[]string{"operation", "code"},
	)

	// RegistryModels reports how many models were loaded at startup.
	RegistryModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "embedding_backend_registry_models",
			Help: "Number of models in the loaded registry",
		},
	)
)
