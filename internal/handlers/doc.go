// Package handlers implements the HTTP API: folder hierarchy management,
// file listing and registration, uploads, bulk operations, and health
// endpoints.
package handlers
