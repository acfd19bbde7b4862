package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_manager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_manager_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_manager_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_manager_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_manager_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Optimizer metrics
var (
	OptimizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_optimize_total",
			Help: "Total number of image optimization operations",
		},
		[]string{"format", "status"},
	)

	OptimizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_manager_optimize_duration_seconds",
			Help:    "Image optimization duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	OptimizeBytesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_manager_optimize_bytes_saved_total",
			Help: "Total bytes saved by image optimization (input minus output, when positive)",
		},
	)
)

// Bulk operation metrics
var (
	BulkOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_bulk_operations_total",
			Help: "Total number of bulk operations executed",
		},
		[]string{"operation"},
	)

	BulkItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_bulk_items_total",
			Help: "Total number of items attempted across bulk operations",
		},
		[]string{"operation", "status"}, // status: "succeeded", "failed"
	)

	BulkOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_manager_bulk_operation_duration_seconds",
			Help:    "Bulk operation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
)

// Storage metrics
var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_manager_storage_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)
)
