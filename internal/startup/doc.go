// Package startup handles environment-driven configuration and the
// structured startup/shutdown log output.
package startup
