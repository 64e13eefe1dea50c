// Package metrics declares the Prometheus collectors shared across the service.
// HTTP metrics are recorded by the api middleware, business metrics by the
// packages that own the corresponding events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_http_requests_total",
			Help: "Total HTTP requests handled by the invoice service",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoice_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// UploadsTotal counts upload items by result ("created", "skipped", "error").
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_uploads_total",
			Help: "Uploaded files by intake result",
		},
		[]string{"result"},
	)

	ProcessingOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_processing_outcomes_total",
			Help: "Invoices that reached a terminal processing status",
		},
		[]string{"status"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invoice_processing_duration_seconds",
			Help:    "Time from processing start to terminal status",
			Buckets: []float64{0.1, 1, 5, 15, 20, 25, 30, 35, 40, 45, 60},
		},
	)

	ProcessingInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invoice_processing_in_flight",
			Help: "Invoices currently scheduled for processing",
		},
	)

	QueryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice_query_cache_hits_total",
		Help: "List query pages served from the cache",
	})

	QueryCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice_query_cache_misses_total",
		Help: "List query pages computed by the store",
	})
)
