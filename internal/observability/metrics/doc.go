// Package metrics defines the Prometheus metrics exported by the worker:
// gateway invocation attempts and token spend, render job outcomes, poll
// loop behavior, and sweeper reclamations.
package metrics
