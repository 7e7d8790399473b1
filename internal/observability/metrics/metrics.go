// Package metrics expone los contadores Prometheus del servicio.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests cuenta requests por ruta y status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialvault",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests HTTP por ruta y status.",
	}, []string{"route", "status"})

	// HTTPDuration observa latencia por ruta.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialvault",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latencia de requests HTTP.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// ConnectAttempts cuenta callbacks por provider y desenlace
	// (connected, degraded, invalid_state, provider_error, exchange_failed).
	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialvault",
		Subsystem: "connect",
		Name:      "attempts_total",
		Help:      "Callbacks OAuth por provider y desenlace.",
	}, []string{"provider", "outcome"})

	// RefreshResults cuenta renovaciones por provider y desenlace
	// (refreshed, reconnect_required, error).
	RefreshResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialvault",
		Subsystem: "refresh",
		Name:      "results_total",
		Help:      "Resultados de renovación de tokens por provider.",
	}, []string{"provider", "outcome"})

	// RateLimited cuenta rechazos 429 por bucket.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialvault",
		Subsystem: "rate",
		Name:      "rejected_total",
		Help:      "Requests rechazados por rate limit, por bucket.",
	}, []string{"bucket"})
)
