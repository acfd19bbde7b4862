// Package workers sizes worker pools for parallel media operations.
package workers
