// Package storage wraps MinIO object storage behind the small ObjectStore
// interface used by upload handling and bulk operations.
package storage
