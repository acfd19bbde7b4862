// Package events publishes service events (uploads, bulk completions,
// folder deletions) to NATS as JSON messages. Eventing is optional: a nil
// Publisher silently drops everything.
package events
