// Package logging provides a minimal leveled logger for the media manager.
// The level is read once from the LOG_LEVEL (or DEBUG) environment variable.
package logging
