// Package metrics provides Prometheus instrumentation for the media manager.
//
// All metrics are prefixed with "media_manager_" to avoid naming collisions.
// They are registered with the default registry via promauto; expose them by
// mounting promhttp.Handler() on the metrics endpoint.
//
// Categories:
//   - HTTP: request totals, duration, in-flight gauge
//   - Database: query totals/duration, transaction duration, open connections
//   - Optimizer: per-format operation totals, duration, bytes saved
//   - Bulk: operation totals, per-item outcomes, duration
//   - Storage: object storage operation outcomes
package metrics
