// Package optimizer is a pure, stateless image transformation pipeline:
// resize within bounds, re-encode, compress. It holds no shared mutable
// state beyond one process-wide memoized format-capability probe, so
// independent calls may run concurrently without coordination.
//
// Encoding prefers libvips (decode-time shrinking, progressive JPEG, WebP
// output) and falls back to the standard library when vips is unavailable.
package optimizer
