// Package bulk coordinates one operation (delete, move, tag, copy,
// download) across a selection of files with per-item, best-effort
// outcome tracking. Partial failure is a structured result, not an error.
package bulk
