// Package logging wraps log/slog with the conventions used across the
// worker: JSON output, LOG_LEVEL-controlled verbosity, request ID
// correlation, and context propagation.
package logging
